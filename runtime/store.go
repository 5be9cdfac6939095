package runtime

import (
	"context"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/wasmstub/linkrt/wasi/preview2"
)

// donorPrefixStyle mirrors the label styling cmd/run uses for its TUI:
// a bold, inverse-colored badge, here applied per-line to everything a
// donor component writes to stdout/stderr so it can be told apart from the
// primary's own output.
var donorPrefixStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4"))

// DonorPrefix renders label as a stylized per-line prefix for a donor
// store's stdout/stderr streams.
func DonorPrefix(label string) string {
	return donorPrefixStyle.Render("["+label+"]") + " "
}

// NewPrimaryStore builds the runtime that hosts the primary component. Its
// stdout/stderr inherit the process's own, unprefixed.
func NewPrimaryStore(ctx context.Context) (*Runtime, error) {
	rt, err := New(ctx)
	if err != nil {
		return nil, err
	}

	wasi := preview2.New()
	wasi.WithStdout(preview2.NewPrefixedOutputStreamResource(os.Stdout, ""))
	wasi.WithStderr(preview2.NewPrefixedOutputStreamResource(os.Stderr, ""))
	if err := rt.RegisterWASI(wasi); err != nil {
		return nil, err
	}

	return rt, nil
}

// NewDonorStore builds the shared runtime that donor components are
// instantiated into. Every chunk written to stdout/stderr is prefixed with
// a stylized label so donor output can't be confused with the primary's.
func NewDonorStore(ctx context.Context, label string) (*Runtime, error) {
	rt, err := New(ctx)
	if err != nil {
		return nil, err
	}

	prefix := DonorPrefix(label)
	wasi := preview2.New()
	wasi.WithStdout(preview2.NewPrefixedOutputStreamResource(os.Stdout, prefix))
	wasi.WithStderr(preview2.NewPrefixedOutputStreamResource(os.Stderr, prefix))
	if err := rt.RegisterWASI(wasi); err != nil {
		return nil, err
	}

	return rt, nil
}
