package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/constinit"
	"github.com/wippyai/constinit/emit"
	"github.com/wippyai/constinit/ir"
)

func main() {
	var (
		name        = flag.String("name", "WIDGET_LIST", "Name of the demo global")
		widgets     = flag.Int("widgets", 3, "Number of widget descriptors to emit")
		showEmit    = flag.Bool("emit", false, "Render the initializer to bytes and dump them")
		interactive = flag.Bool("i", false, "Interactive initializer browser")
		noColor     = flag.Bool("no-color", false, "Disable styled output")
		verbose     = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		constinit.SetLogger(logger)
		defer logger.Sync()
	}

	mod := ir.NewModule()
	gv, err := buildWidgetList(mod, *name, *widgets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(gv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	styled := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
	if err := dump(mod, gv, styled, *showEmit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildWidgetList assembles the classic widget table: a count followed by an
// array of descriptors, each holding a power level, a pointer to the widget's
// name, and a compact relative offset back to the name.
func buildWidgetList(mod *ir.Module, name string, n int) (*ir.Global, error) {
	b := constinit.New(mod, nil)
	defer b.Finalize()

	names := make([]*ir.Global, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("widget-%d", i)
		arr := b.BeginArray(ir.I8)
		for _, c := range []byte(text) {
			arr.AddInt(ir.I8, uint64(c))
		}
		arr.AddInt(ir.I8, 0)
		gv, err := arr.FinishAndCreateGlobal(
			fmt.Sprintf("%s.name.%d", name, i),
			ir.GlobalOptions{Constant: true, Linkage: ir.LinkPrivate, Align: 1},
		)
		if err != nil {
			return nil, err
		}
		names[i] = gv
	}

	toplevel := b.BeginStruct(nil)
	count := toplevel.AddPlaceholder()

	arr := toplevel.BeginArray(nil)
	for i := 0; i < n; i++ {
		desc := arr.BeginStruct(nil)
		desc.AddInt(ir.I32, uint64(100*(i+1)))
		desc.AddBitCast(names[i], ir.PointerTo(ir.I8))
		desc.AddRelativeOffset(ir.I32, names[i])
		desc.FinishAndAddTo(arr)
	}
	arr.FinishAndAddTo(toplevel)

	toplevel.FillPlaceholderInt(count, ir.I64, uint64(n))

	return toplevel.FinishAndCreateGlobal(name, ir.GlobalOptions{
		Align:    8,
		Constant: true,
	})
}

func dump(mod *ir.Module, gv *ir.Global, styled, showEmit bool) error {
	s := newStyles(styled)

	fmt.Println(s.title.Render(" " + gv.Name() + " "))
	fmt.Printf("Type:      %s\n", s.typ.Render(gv.ValueType().String()))
	fmt.Printf("Linkage:   %s\n", gv.Linkage())
	fmt.Printf("Alignment: %d\n", gv.Alignment())
	fmt.Printf("Constant:  %v\n", gv.IsConstant())
	fmt.Printf("Globals:   %d in module\n", len(mod.Globals()))

	fmt.Println()
	printTree(s, gv.Init(), "", 0)

	if !showEmit {
		return nil
	}

	img, err := emit.Encode(gv, nil)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(s.title.Render(" rendered bytes "))
	dumpHex(img.Bytes)
	if len(img.Relocs) > 0 {
		fmt.Println()
		fmt.Println(s.title.Render(" relocations "))
		for _, r := range img.Relocs {
			kind := "absolute"
			if r.Relative {
				kind = "relative"
			}
			fmt.Printf("  +%04x %s %s%+d (width %d)\n",
				r.Offset, kind, s.val.Render(r.Target.String()), r.Addend, r.Width)
		}
	}
	return nil
}

func printTree(s styles, c ir.Constant, label string, depth int) {
	indent := strings.Repeat("  ", depth)
	prefix := indent
	if label != "" {
		prefix += s.field.Render(label) + ": "
	}
	switch v := c.(type) {
	case *ir.Array:
		fmt.Printf("%s%s\n", prefix, s.typ.Render(v.Ty.String()))
		for i, e := range v.Elems {
			printTree(s, e, fmt.Sprintf("[%d]", i), depth+1)
		}
	case *ir.Struct:
		fmt.Printf("%s%s\n", prefix, s.typ.Render(v.Ty.String()))
		for i, f := range v.Fields {
			printTree(s, f, fmt.Sprintf(".%d", i), depth+1)
		}
	default:
		fmt.Printf("%s%s\n", prefix, s.val.Render(c.String()))
	}
}

func dumpHex(data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := min(off+16, len(data))
		fmt.Printf("  %04x  ", off)
		for i := off; i < end; i++ {
			fmt.Printf("%02x ", data[i])
		}
		fmt.Println()
	}
}

type styles struct {
	title lipgloss.Style
	field lipgloss.Style
	typ   lipgloss.Style
	val   lipgloss.Style
}

func newStyles(enabled bool) styles {
	if !enabled {
		plain := lipgloss.NewStyle()
		return styles{title: plain, field: plain, typ: plain, val: plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")),
		field: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
		typ: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")),
		val: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98")),
	}
}
