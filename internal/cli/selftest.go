package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/tracecap/internal/errors"
	"github.com/coral-mesh/tracecap/internal/logging"
	"github.com/coral-mesh/tracecap/internal/mem"
	"github.com/coral-mesh/tracecap/internal/sig"
	"github.com/coral-mesh/tracecap/internal/trace"
)

// Descriptors for the synthetic calls the selftest records. Ids above
// the builtin pseudo-call range.
var (
	selftestDraw = &sig.Function{
		ID:   16,
		Name: "drawTriangles",
		Args: []string{"mode", "first", "count", "vertices"},
	}
	selftestClear = &sig.Function{
		ID:   17,
		Name: "clearColor",
		Args: []string{"color"},
	}
	selftestColor = &sig.Struct{
		ID:      1,
		Name:    "Color4f",
		Members: []string{"r", "g", "b", "a"},
	}
	selftestMode = &sig.Enum{ID: 1, Name: "TRIANGLES", Value: 4}
	selftestMask = &sig.Bitmask{
		ID:   1,
		Name: "ClearFlags",
		Flags: []sig.Flag{
			{Name: "NONE", Value: 0},
			{Name: "COLOR", Value: 1},
			{Name: "DEPTH", Value: 2},
		},
	}
)

func newSelftestCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Record a synthetic trace exercising the full writer stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if quiet {
				level = "error"
			}
			logger := logging.NewWithComponent(logging.Config{Level: level, Output: cmd.ErrOrStderr()}, "selftest")

			insp := mem.NewBuffer()
			vertices := make([]byte, 256)
			for i := range vertices {
				vertices[i] = byte(i)
			}
			base := insp.Register(vertices)

			opts := trace.DefaultOptions(logger)
			opts.Inspector = insp
			w := trace.New(opts)

			path := output
			if path == "" {
				var err error
				if path, err = trace.DefaultPath(); err != nil {
					return err
				}
			}
			if err := w.Open(path); err != nil {
				return err
			}
			// Close is idempotent, so this only matters on early error returns.
			defer errors.DeferClose(logger, w, "failed to close trace writer")

			// A draw call over the full buffer, then a partial mutation
			// and a redraw: the second region update must shrink to the
			// changed bytes only.
			recordDraw(w, base, uint64(len(vertices)))
			copy(vertices[64:96], make([]byte, 32))
			recordDraw(w, base, uint64(len(vertices)))
			recordClear(w)

			if err := w.Close(); err != nil {
				return err
			}

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, info.Size())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "trace output path (default: derived)")
	return cmd
}

func recordDraw(w *trace.Writer, vertices, size uint64) {
	w.UpdateRegion(vertices, size)

	call := w.BeginEnter(selftestDraw)
	w.BeginArg(0)
	w.WriteEnum(selftestMode)
	w.BeginArg(1)
	w.WriteSInt(0)
	w.BeginArg(2)
	w.WriteUInt(size / 16)
	w.BeginArg(3)
	w.WriteOpaque(vertices)
	w.EndEnter()
	w.BeginLeave(call)
	w.EndLeave()
}

func recordClear(w *trace.Writer) {
	call := w.BeginEnter(selftestClear)
	w.BeginArg(0)
	w.BeginStruct(selftestColor)
	w.WriteFloat(0)
	w.WriteFloat(0)
	w.WriteFloat(0)
	w.WriteFloat(1)
	w.EndEnter()
	w.BeginLeave(call)
	w.BeginReturn()
	w.WriteBitmask(selftestMask, 3)
	w.EndLeave()
}
