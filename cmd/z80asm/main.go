package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jiiink/z80asm/pkg/dialect"
	"github.com/jiiink/z80asm/pkg/fp"
	"github.com/jiiink/z80asm/pkg/linehook"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "z80asm",
		Short: "Z80-family assembler backend driver",
	}
	rootCmd.AddCommand(newAssembleCmd(), newMarchInfoCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dialectFlags binds every §6 command-line switch to a flag set shared by
// both subcommands.
type dialectFlags struct {
	march                    string
	z80, r800, z180          bool
	ez80, ez80adl            bool
	fud, fup                 bool
	withInst, withoutInst    string
	fpS, fpD                 string
	localPrefix              string
	colonless                bool
	sdcc                     bool
}

func (f *dialectFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.march, "march", "z80+xyhl+infc", "CPU[{+|-}EXT...]")
	cmd.Flags().BoolVar(&f.z80, "z80", false, "shorthand for -march=z80")
	cmd.Flags().BoolVar(&f.r800, "r800", false, "shorthand for -march=r800")
	cmd.Flags().BoolVar(&f.z180, "z180", false, "shorthand for -march=z180")
	cmd.Flags().BoolVar(&f.ez80, "ez80", false, "shorthand for -march=ez80")
	cmd.Flags().BoolVar(&f.ez80adl, "ez80-adl", false, "shorthand for -march=ez80+adl")
	cmd.Flags().BoolVar(&f.fud, "Fud", false, "forbid undocumented instructions (default: warn)")
	cmd.Flags().Bool("Wud", false, "warn on undocumented instructions (default)")
	cmd.Flags().BoolVar(&f.fup, "Fup", false, "forbid unportable instructions (default: warn)")
	cmd.Flags().Bool("Wup", false, "warn on unportable instructions (default)")
	cmd.Flags().StringVar(&f.withInst, "with-inst", "", "comma-separated instruction classes to allow")
	cmd.Flags().StringVar(&f.withoutInst, "without-inst", "", "comma-separated instruction classes to forbid")
	cmd.Flags().StringVar(&f.withInst, "Wnins", "", "synonym for --with-inst")
	cmd.Flags().StringVar(&f.withoutInst, "Fins", "", "synonym for --without-inst")
	cmd.Flags().StringVar(&f.fpS, "fp-s", "single", "single-precision float format (half/single/double/zeda32/math48)")
	cmd.Flags().StringVar(&f.fpD, "fp-d", "double", "double-precision float format")
	cmd.Flags().StringVar(&f.localPrefix, "local-prefix", "", "local label prefix text")
	cmd.Flags().BoolVar(&f.colonless, "colonless", false, "permit colonless labels")
	cmd.Flags().BoolVar(&f.sdcc, "sdcc", false, "enable sdcc source compatibility")
}

// resolve builds a *dialect.State from the parsed flags, in the same order
// md_assemble's command-line handling applies them: march/shorthand first,
// then instruction-class toggles, then compatibility switches.
func (f *dialectFlags) resolve() (*dialect.State, error) {
	d := dialect.New()

	march := f.march
	switch {
	case f.ez80adl:
		march = "ez80+adl"
	case f.ez80:
		march = "ez80"
	case f.z180:
		march = "z180"
	case f.r800:
		march = "r800"
	case f.z80:
		march = "z80"
	}
	if err := d.SetMarch(march); err != nil {
		return nil, err
	}

	if f.withInst != "" {
		if err := d.WithInst(f.withInst); err != nil {
			return nil, err
		}
	}
	if f.withoutInst != "" {
		if err := d.WithoutInst(f.withoutInst); err != nil {
			return nil, err
		}
	}
	d.SetUndocumented(f.fud)
	d.SetUnportable(f.fup)

	d.SDCCCompat = f.sdcc
	d.ColonlessLabels = f.colonless
	d.LocalLabelPrefix = f.localPrefix

	if _, err := fp.ValidateFormatName(f.fpS); err != nil {
		return nil, err
	}
	if _, err := fp.ValidateFormatName(f.fpD); err != nil {
		return nil, err
	}
	d.FloatFormatSingle = f.fpS
	d.FloatFormatDouble = f.fpD

	return d, nil
}

func newAssembleCmd() *cobra.Command {
	var flags dialectFlags
	var dumpFixups string

	cmd := &cobra.Command{
		Use:   "assemble FILE",
		Short: "Assemble a toy line-oriented Z80-family source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := flags.resolve()
			if err != nil {
				return fmt.Errorf("resolving dialect: %w", err)
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			h := linehook.New(0)
			*h.Dialect = *d

			sc := bufio.NewScanner(in)
			lineNo := 0
			errCount := 0
			for sc.Scan() {
				lineNo++
				if err := h.ProcessLine(lineNo, sc.Text()); err != nil {
					errCount++
				}
			}
			if err := sc.Err(); err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			for _, d := range h.Asm.Ctx.Diag.All {
				fmt.Fprintln(os.Stderr, d.String())
			}

			bytes := h.Asm.Ctx.Emit.Frag.Bytes
			fmt.Printf("%d bytes assembled, %d fixup(s), %d error(s)\n",
				len(bytes), len(h.Asm.Ctx.Emit.Frag.Relocs), h.Asm.Ctx.Diag.ErrorCount())
			fmt.Printf("% X\n", bytes)

			if dumpFixups != "" {
				if err := writeDump(dumpFixups, h); err != nil {
					return fmt.Errorf("writing %s: %w", dumpFixups, err)
				}
			}

			if h.Asm.Ctx.Diag.ErrorCount() > 0 {
				return fmt.Errorf("assembly failed with %d error(s)", h.Asm.Ctx.Diag.ErrorCount())
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&dumpFixups, "dump-fixups", "", "write bytes/relocations/diagnostics as JSON to this path")
	return cmd
}

func newMarchInfoCmd() *cobra.Command {
	var flags dialectFlags
	cmd := &cobra.Command{
		Use:   "march-info",
		Short: "Print the resolved dialect configuration for debugging -march selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := flags.resolve()
			if err != nil {
				return fmt.Errorf("resolving dialect: %w", err)
			}
			fmt.Printf("CPU:              %s\n", d.CPU())
			fmt.Printf("CPU mode:         %d (%s)\n", d.CPUMode, cpuModeName(d.CPUMode))
			fmt.Printf("InsOK:            0x%08X\n", uint32(d.InsOK))
			fmt.Printf("InsErr:           0x%08X\n", uint32(d.InsErr))
			fmt.Printf("sdcc compat:      %t\n", d.SDCCCompat)
			fmt.Printf("colonless labels: %t\n", d.ColonlessLabels)
			fmt.Printf("local prefix:     %q\n", d.LocalLabelPrefix)
			fmt.Printf("float (single):   %s\n", d.FloatFormatSingle)
			fmt.Printf("float (double):   %s\n", d.FloatFormatDouble)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func cpuModeName(mode int) string {
	if mode == 1 {
		return "ADL/24-bit"
	}
	return "Z80/16-bit"
}

// dumpOutput is the JSON shape written by -dump-fixups: a flat,
// directly-marshalable struct rather than a custom wire format.
type dumpOutput struct {
	Bytes       []byte       `json:"bytes"`
	Fixups      []dumpFixup  `json:"fixups"`
	Diagnostics []string     `json:"diagnostics"`
}

type dumpFixup struct {
	Offset int  `json:"offset"`
	Size   int  `json:"size"`
	Kind   int  `json:"kind"`
	PCRel  bool `json:"pc_relative"`
}

func writeDump(path string, h *linehook.Hook) error {
	out := dumpOutput{Bytes: h.Asm.Ctx.Emit.Frag.Bytes}
	for _, r := range h.Asm.Ctx.Emit.Frag.Relocs {
		out.Fixups = append(out.Fixups, dumpFixup{Offset: r.Offset, Size: r.Size, Kind: int(r.Kind), PCRel: r.PCRel})
	}
	for _, d := range h.Asm.Ctx.Diag.All {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
