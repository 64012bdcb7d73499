package ir_test

import (
	"testing"

	"github.com/wippyai/constinit/ir"
)

func TestSizeAndAlign(t *testing.T) {
	l := ir.DefaultLayout()

	tests := []struct {
		ty    ir.Type
		size  int64
		align int64
		str   string
	}{
		{ir.I8, 1, 1, "i8"},
		{ir.I16, 2, 2, "i16"},
		{ir.I32, 4, 4, "i32"},
		{ir.I64, 8, 8, "i64"},
		{ir.PointerTo(ir.I8), 8, 8, "i8*"},
		{&ir.PointerType{Elem: ir.I32, AddrSpace: 1}, 8, 8, "i32 addrspace(1)*"},
		{ir.NewArrayType(ir.I8, 3), 3, 1, "[3 x i8]"},
		{ir.NewArrayType(ir.I32, 4), 16, 4, "[4 x i32]"},
		{ir.NewStructType("", []ir.Type{ir.I32, ir.PointerTo(ir.I8)}, false), 16, 8, "{i32, i8*}"},
		{ir.NewStructType("", []ir.Type{ir.I32, ir.PointerTo(ir.I8)}, true), 12, 1, "<{i32, i8*}>"},
		{ir.NewStructType("named", []ir.Type{ir.I8}, false), 1, 1, "%named"},
		{ir.NewStructType("", nil, false), 0, 1, "{}"},
	}

	for _, tt := range tests {
		if got := tt.ty.Size(l); got != tt.size {
			t.Errorf("%s: Size = %d, want %d", tt.str, got, tt.size)
		}
		if got := tt.ty.Align(l); got != tt.align {
			t.Errorf("%s: Align = %d, want %d", tt.str, got, tt.align)
		}
		if got := tt.ty.String(); got != tt.str {
			t.Errorf("String = %q, want %q", got, tt.str)
		}
	}
}

func TestLayout_PointerWidth(t *testing.T) {
	l32 := &ir.Layout{PointerBits: 32}
	p := ir.PointerTo(ir.I8)
	if got := p.Size(l32); got != 4 {
		t.Errorf("pointer size on 32-bit layout = %d, want 4", got)
	}
	st := ir.NewStructType("", []ir.Type{ir.I8, p}, false)
	if got := st.Size(l32); got != 8 {
		t.Errorf("struct size on 32-bit layout = %d, want 8", got)
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want int64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{4, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{5, 1, 5},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := ir.AlignTo(tt.offset, tt.align); got != tt.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tt.offset, tt.align, got, tt.want)
		}
	}
}

func TestStructType_FieldOffset(t *testing.T) {
	l := ir.DefaultLayout()
	st := ir.NewStructType("", []ir.Type{ir.I8, ir.I32, ir.I8, ir.I64}, false)

	want := []int64{0, 4, 8, 16}
	for i, w := range want {
		if got := st.FieldOffset(l, i); got != w {
			t.Errorf("FieldOffset(%d) = %d, want %d", i, got, w)
		}
	}
	if got := st.Size(l); got != 24 {
		t.Errorf("Size = %d, want 24", got)
	}
}

func TestTypesEqual(t *testing.T) {
	tests := []struct {
		a, b ir.Type
		want bool
	}{
		{ir.I32, &ir.IntType{Bits: 32}, true},
		{ir.I32, ir.I64, false},
		{ir.PointerTo(ir.I8), ir.PointerTo(ir.I8), true},
		{ir.PointerTo(ir.I8), ir.PointerTo(ir.I16), false},
		{ir.PointerTo(ir.I8), &ir.PointerType{Elem: ir.I8, AddrSpace: 2}, false},
		{ir.NewArrayType(ir.I8, 3), ir.NewArrayType(ir.I8, 3), true},
		{ir.NewArrayType(ir.I8, 3), ir.NewArrayType(ir.I8, 4), false},
		{
			ir.NewStructType("a", []ir.Type{ir.I32}, false),
			ir.NewStructType("b", []ir.Type{ir.I32}, false),
			true, // structural, names ignored
		},
		{
			ir.NewStructType("", []ir.Type{ir.I32}, false),
			ir.NewStructType("", []ir.Type{ir.I32}, true),
			false,
		},
		{ir.I32, ir.PointerTo(ir.I32), false},
	}

	for _, tt := range tests {
		if got := ir.TypesEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("TypesEqual(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestElemTypeAt(t *testing.T) {
	inner := ir.NewStructType("", []ir.Type{ir.I16, ir.PointerTo(ir.I8)}, false)
	outer := ir.NewStructType("", []ir.Type{ir.I32, ir.NewArrayType(inner, 4)}, false)

	tests := []struct {
		indices []uint64
		want    ir.Type
		wantErr bool
	}{
		{[]uint64{0}, outer, false},
		{[]uint64{0, 0}, ir.I32, false},
		{[]uint64{0, 1}, ir.NewArrayType(inner, 4), false},
		{[]uint64{0, 1, 2}, inner, false},
		{[]uint64{0, 1, 2, 1}, ir.PointerTo(ir.I8), false},
		{[]uint64{0, 2}, nil, true},     // struct field out of range
		{[]uint64{0, 1, 4}, nil, true},  // array index out of range
		{[]uint64{0, 0, 0}, nil, true},  // cannot index into i32
		{nil, nil, true},                // empty path
	}

	for _, tt := range tests {
		got, err := ir.ElemTypeAt(outer, tt.indices)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ElemTypeAt(%v): expected error, got %s", tt.indices, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ElemTypeAt(%v): %v", tt.indices, err)
			continue
		}
		if !ir.TypesEqual(got, tt.want) {
			t.Errorf("ElemTypeAt(%v) = %s, want %s", tt.indices, got, tt.want)
		}
	}
}

func TestLayout_OffsetOf(t *testing.T) {
	l := ir.DefaultLayout()
	inner := ir.NewStructType("", []ir.Type{ir.I16, ir.PointerTo(ir.I8)}, false)
	outer := ir.NewStructType("", []ir.Type{ir.I32, ir.NewArrayType(inner, 4)}, false)

	tests := []struct {
		indices []uint64
		want    int64
	}{
		{[]uint64{0}, 0},
		{[]uint64{1}, 72},          // stride of outer is 72
		{[]uint64{0, 0}, 0},
		{[]uint64{0, 1}, 8},        // array starts at 8
		{[]uint64{0, 1, 2}, 40},    // 8 + 2*16
		{[]uint64{0, 1, 2, 1}, 48}, // + pointer field at 8
	}

	for _, tt := range tests {
		got, err := l.OffsetOf(outer, tt.indices)
		if err != nil {
			t.Errorf("OffsetOf(%v): %v", tt.indices, err)
			continue
		}
		if got != tt.want {
			t.Errorf("OffsetOf(%v) = %d, want %d", tt.indices, got, tt.want)
		}
	}

	if _, err := l.OffsetOf(outer, []uint64{0, 9}); err == nil {
		t.Error("OffsetOf out-of-range path: expected error")
	}
}
