package archive

import (
	"io"
	"os/exec"
)

// bzip2Writer compresses by piping through the system bzip2 binary.
// compress/bzip2 in the standard library only ships a reader; rather
// than vendor a third-party bzip2 encoder the pack doesn't otherwise
// use, we shell out the same way the Build Driver already shells out to
// configure/make — this is a packaging tool running in a build
// environment that is assumed to have one.
type bzip2Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func newBzip2Writer(dst io.Writer) io.WriteCloser {
	pr, pw := io.Pipe()
	done := make(chan error, 1)

	cmd := exec.Command("bzip2", "-z", "-c")
	cmd.Stdin = pr
	cmd.Stdout = dst

	go func() {
		done <- cmd.Run()
		pr.Close()
	}()

	return &bzip2Writer{pw: pw, done: done}
}

func (b *bzip2Writer) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

func (b *bzip2Writer) Close() error {
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}
