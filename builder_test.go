package constinit_test

import (
	"testing"

	"github.com/wippyai/constinit"
	"github.com/wippyai/constinit/errors"
	"github.com/wippyai/constinit/ir"
)

func mustPanic(t *testing.T, kind errors.Kind, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with kind %s, got none", kind)
		}
		err, ok := r.(*errors.Error)
		if !ok {
			t.Fatalf("panic value %v is not a *errors.Error", r)
		}
		if err.Kind != kind {
			t.Errorf("panic kind = %s, want %s (%v)", err.Kind, kind, err)
		}
	}()
	fn()
}

func newBuilder() *constinit.Builder {
	return constinit.New(ir.NewModule(), nil)
}

func TestArrayBuilder_SizeAndOrder(t *testing.T) {
	b := newBuilder()
	arr := b.BeginArray(nil)

	want := []uint64{10, 20, 30, 40}
	for i, v := range want {
		if got := arr.Size(); got != i {
			t.Errorf("Size() before add %d = %d, want %d", v, got, i)
		}
		arr.AddInt(ir.I32, v)
	}
	if arr.Empty() {
		t.Error("Empty() = true after adds")
	}

	gv, err := arr.FinishAndCreateGlobal("arr", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	a, ok := gv.Init().(*ir.Array)
	if !ok {
		t.Fatalf("initializer is %T, want *ir.Array", gv.Init())
	}
	if a.Ty.Len != len(want) || len(a.Elems) != len(want) {
		t.Fatalf("array length = %d/%d, want %d", a.Ty.Len, len(a.Elems), len(want))
	}
	if !ir.TypesEqual(a.Ty.Elem, ir.I32) {
		t.Errorf("element type = %s, want i32", a.Ty.Elem)
	}
	for i, v := range want {
		if got := a.Elems[i].(*ir.Int).Value; got != v {
			t.Errorf("element %d = %d, want %d", i, got, v)
		}
	}
}

func TestArrayBuilder_EmptyNeedsElementType(t *testing.T) {
	b := newBuilder()

	arr := b.BeginArray(ir.I8)
	gv, err := arr.FinishAndCreateGlobal("empty", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	if at := gv.Init().Type().(*ir.ArrayType); at.Len != 0 {
		t.Errorf("array length = %d, want 0", at.Len)
	}

	arr2 := b.BeginArray(nil)
	mustPanic(t, errors.KindArityMismatch, func() {
		_, _ = arr2.FinishAndCreateGlobal("empty2", ir.GlobalOptions{})
	})
	b.Finalize()
}

func TestArrayBuilder_ElementTypeMismatch(t *testing.T) {
	b := newBuilder()
	arr := b.BeginArray(ir.I32)
	arr.AddInt(ir.I32, 1)
	arr.AddInt(ir.I8, 2)
	mustPanic(t, errors.KindTypeMismatch, func() {
		_, _ = arr.FinishAndCreateGlobal("bad", ir.GlobalOptions{})
	})
}

func TestStructBuilder_ExplicitType(t *testing.T) {
	ty := ir.NewStructType("pair", []ir.Type{ir.I32, ir.PointerTo(ir.I8)}, false)

	t.Run("matching", func(t *testing.T) {
		b := newBuilder()
		st := b.BeginStruct(ty)
		st.AddInt(ir.I32, 7)
		st.AddNull(ir.PointerTo(ir.I8))
		gv, err := st.FinishAndCreateGlobal("ok", ir.GlobalOptions{})
		if err != nil {
			t.Fatalf("FinishAndCreateGlobal: %v", err)
		}
		b.Finalize()
		if got := gv.Init().Type(); !ir.TypesEqual(got, ty) {
			t.Errorf("initializer type = %s, want %s", got, ty)
		}
	})

	t.Run("arity mismatch", func(t *testing.T) {
		b := newBuilder()
		st := b.BeginStruct(ty)
		st.AddInt(ir.I32, 7)
		mustPanic(t, errors.KindArityMismatch, func() {
			_, _ = st.FinishAndCreateGlobal("bad", ir.GlobalOptions{})
		})
	})

	t.Run("field type mismatch", func(t *testing.T) {
		b := newBuilder()
		st := b.BeginStruct(ty)
		st.AddInt(ir.I32, 7)
		st.AddInt(ir.I64, 8)
		mustPanic(t, errors.KindTypeMismatch, func() {
			_, _ = st.FinishAndCreateGlobal("bad", ir.GlobalOptions{})
		})
	})
}

func TestStructBuilder_SynthesizedType(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)
	st.AddInt(ir.I8, 1)
	st.AddInt(ir.I64, 2)
	gv, err := st.FinishAndCreateGlobal("synth", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	want := ir.NewStructType("", []ir.Type{ir.I8, ir.I64}, false)
	if got := gv.Init().Type(); !ir.TypesEqual(got, want) {
		t.Errorf("synthesized type = %s, want %s", got, want)
	}
}

func TestPlaceholder_FillOnce(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)
	ph := st.AddPlaceholder()
	st.AddInt(ir.I8, 9)
	st.FillPlaceholderInt(ph, ir.I32, 3)

	mustPanic(t, errors.KindPlaceholderFilled, func() {
		st.FillPlaceholderInt(ph, ir.I32, 4)
	})

	gv, err := st.FinishAndCreateGlobal("ph", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	s := gv.Init().(*ir.Struct)
	if got := s.Fields[0].(*ir.Int).Value; got != 3 {
		t.Errorf("placeholder slot = %d, want 3", got)
	}
}

func TestPlaceholder_UnfilledFailsFinish(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)
	st.AddPlaceholder()
	st.AddInt(ir.I8, 1)
	mustPanic(t, errors.KindPlaceholderEmpty, func() {
		_, _ = st.FinishAndCreateGlobal("bad", ir.GlobalOptions{})
	})
}

func TestNextOffsetFromGlobal_Padding(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)

	if got := st.NextOffsetFromGlobal(); got != 0 {
		t.Errorf("offset of empty struct = %d, want 0", got)
	}
	st.AddInt(ir.I32, 1)
	if got := st.NextOffsetFromGlobal(); got != 4 {
		t.Errorf("offset after i32 = %d, want 4", got)
	}
	// The pointer lands at 8 after 4 bytes of padding.
	st.AddNull(ir.PointerTo(ir.I8))
	if got := st.NextOffsetFromGlobal(); got != 16 {
		t.Errorf("offset after i32 + pointer = %d, want 16", got)
	}

	st.Abandon()
	b.Finalize()
}

func TestNextOffsetFromGlobal_Nested(t *testing.T) {
	b := newBuilder()
	outer := b.BeginStruct(nil)
	outer.AddInt(ir.I64, 1)

	inner := outer.BeginStruct(nil)
	inner.AddInt(ir.I32, 2)
	if got := inner.NextOffsetFromGlobal(); got != 12 {
		t.Errorf("nested offset = %d, want 12", got)
	}
	inner.FinishAndAddTo(outer)

	outer.Abandon()
	b.Finalize()
}

func TestNextOffsetFromGlobal_AcrossPlaceholder(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)
	st.AddPlaceholder()
	mustPanic(t, errors.KindPlaceholderEmpty, func() {
		st.NextOffsetFromGlobal()
	})
}

func TestAbandon_RestoresBuffer(t *testing.T) {
	b := newBuilder()
	arr := b.BeginArray(nil)
	arr.AddInt(ir.I32, 1)
	arr.AddInt(ir.I32, 2)
	arr.AddInt(ir.I32, 3)
	arr.Abandon()

	// The buffer is back to empty; Finalize accepts it and a new root
	// builder can begin.
	b.Finalize()
	arr2 := b.BeginArray(nil)
	arr2.AddInt(ir.I8, 1)
	if _, err := arr2.FinishAndCreateGlobal("second", ir.GlobalOptions{}); err != nil {
		t.Fatalf("FinishAndCreateGlobal after abandon: %v", err)
	}
	b.Finalize()
}

func TestNested_FinishAndAddTo(t *testing.T) {
	b := newBuilder()
	outer := b.BeginStruct(nil)
	outer.AddInt(ir.I32, 1)

	inner := outer.BeginArray(ir.I16)
	for i := 0; i < 5; i++ {
		inner.AddInt(ir.I16, uint64(i))
	}
	inner.FinishAndAddTo(outer)

	gv, err := outer.FinishAndCreateGlobal("nested", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	s := gv.Init().(*ir.Struct)
	// The child collapses into exactly one composite field.
	if got := len(s.Fields); got != 2 {
		t.Fatalf("outer field count = %d, want 2", got)
	}
	if got := len(s.Fields[1].(*ir.Array).Elems); got != 5 {
		t.Errorf("inner element count = %d, want 5", got)
	}
}

func TestFrozenDiscipline(t *testing.T) {
	t.Run("add while frozen", func(t *testing.T) {
		b := newBuilder()
		outer := b.BeginStruct(nil)
		inner := outer.BeginStruct(nil)
		mustPanic(t, errors.KindFrozen, func() {
			outer.AddInt(ir.I32, 1)
		})
		inner.Abandon()
		outer.Abandon()
		b.Finalize()
	})

	t.Run("offset while frozen", func(t *testing.T) {
		b := newBuilder()
		outer := b.BeginStruct(nil)
		outer.BeginStruct(nil)
		mustPanic(t, errors.KindFrozen, func() {
			outer.NextOffsetFromGlobal()
		})
	})

	t.Run("finish with active child", func(t *testing.T) {
		b := newBuilder()
		outer := b.BeginStruct(nil)
		outer.BeginStruct(nil)
		mustPanic(t, errors.KindFrozen, func() {
			_, _ = outer.FinishAndCreateGlobal("bad", ir.GlobalOptions{})
		})
	})

	t.Run("two children at once", func(t *testing.T) {
		b := newBuilder()
		outer := b.BeginStruct(nil)
		outer.BeginStruct(nil)
		mustPanic(t, errors.KindFrozen, func() {
			outer.BeginArray(nil)
		})
	})

	t.Run("two roots at once", func(t *testing.T) {
		b := newBuilder()
		b.BeginStruct(nil)
		mustPanic(t, errors.KindFrozen, func() {
			b.BeginArray(nil)
		})
	})
}

func TestFinishTwice(t *testing.T) {
	b := newBuilder()
	arr := b.BeginArray(ir.I8)
	arr.AddInt(ir.I8, 1)
	if _, err := arr.FinishAndCreateGlobal("once", ir.GlobalOptions{}); err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	mustPanic(t, errors.KindFinished, func() {
		_, _ = arr.FinishAndCreateGlobal("twice", ir.GlobalOptions{})
	})
	mustPanic(t, errors.KindFinished, func() {
		arr.AddInt(ir.I8, 2)
	})
	b.Finalize()
}

func TestFinishAndAddTo_WrongParent(t *testing.T) {
	b := newBuilder()
	outer := b.BeginStruct(nil)
	inner := outer.BeginStruct(nil)
	inner.AddInt(ir.I8, 1)
	mustPanic(t, errors.KindWrongParent, func() {
		inner.FinishAndAddTo(inner)
	})
}

func TestFinishGlobal_NotRoot(t *testing.T) {
	b := newBuilder()
	outer := b.BeginStruct(nil)
	inner := outer.BeginStruct(nil)
	mustPanic(t, errors.KindNotRoot, func() {
		_, _ = inner.FinishAndCreateGlobal("bad", ir.GlobalOptions{})
	})
}

func TestFinalize_UnclaimedValues(t *testing.T) {
	b := newBuilder()
	arr := b.BeginArray(nil)
	arr.AddInt(ir.I8, 1)
	mustPanic(t, errors.KindUnclaimed, func() {
		b.Finalize()
	})
}

func TestGEPIndicesToCurrentPosition(t *testing.T) {
	b := newBuilder()
	outer := b.BeginStruct(nil)
	outer.AddInt(ir.I32, 1)
	outer.AddInt(ir.I32, 2)

	inner := outer.BeginArray(ir.I8)
	inner.AddInt(ir.I8, 3)

	got := inner.GEPIndicesToCurrentPosition()
	want := []uint64{0, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}

	inner.Abandon()
	outer.Abandon()
	b.Finalize()
}

func TestSelfReference_Resolution(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)

	addr := st.AddrOfCurrentPosition(ir.I32)
	st.AddInt(ir.I32, 7)
	st.Add(addr)

	ref := addr.(*ir.DeferredPointer)
	if _, ok := ref.Resolved(); ok {
		t.Fatal("deferred pointer resolved before global creation")
	}

	gv, err := st.FinishAndCreateGlobal("self", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	resolved, ok := ref.Resolved()
	if !ok {
		t.Fatal("deferred pointer not resolved after global creation")
	}
	// The resolved address equals the one computed directly against the
	// existing global with the same index path.
	direct := ir.NewElemPtr(gv, gv.ValueType(), 0, 0)
	if resolved.String() != direct.String() {
		t.Errorf("resolved = %s, want %s", resolved, direct)
	}
	if !ir.TypesEqual(resolved.Type(), ir.PointerTo(ir.I32)) {
		t.Errorf("resolved type = %s, want i32*", resolved.Type())
	}
}

func TestSelfReference_MultipleIndependent(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)

	first := st.AddrOfCurrentPosition(ir.I32)
	st.AddInt(ir.I32, 1)
	second := st.AddrOfCurrentPosition(ir.I64)
	st.AddInt(ir.I64, 2)
	st.Add(first)
	st.Add(second)

	_, err := st.FinishAndCreateGlobal("multi", ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	r1, ok1 := first.(*ir.DeferredPointer).Resolved()
	r2, ok2 := second.(*ir.DeferredPointer).Resolved()
	if !ok1 || !ok2 {
		t.Fatal("self-references not all resolved")
	}
	if r1.String() == r2.String() {
		t.Errorf("independent self-references resolved to the same address %s", r1)
	}
}

func TestSelfReference_DanglingAfterAbandon(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)
	st.AddrOfCurrentPosition(ir.I32)
	st.AddInt(ir.I32, 1)
	st.Abandon()

	arr := b.BeginArray(ir.I8)
	arr.AddInt(ir.I8, 1)
	mustPanic(t, errors.KindUnresolvedRef, func() {
		_, _ = arr.FinishAndCreateGlobal("later", ir.GlobalOptions{})
	})
}

func TestSetInitializer_ExistingGlobal(t *testing.T) {
	mod := ir.NewModule()
	b := constinit.New(mod, nil)

	decl, err := mod.Declare("table", ir.NewStructType("", []ir.Type{ir.I32, ir.PointerTo(ir.I32)}, false), ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}

	st := b.BeginStruct(nil)
	addr := st.AddrOfCurrentPosition(ir.I32)
	st.AddInt(ir.I32, 5)
	st.Add(addr)
	if err := st.FinishAndSetAsInitializer(decl); err != nil {
		t.Fatalf("FinishAndSetAsInitializer: %v", err)
	}
	b.Finalize()

	if decl.IsDeclaration() {
		t.Fatal("global still a declaration after FinishAndSetAsInitializer")
	}
	if _, ok := addr.(*ir.DeferredPointer).Resolved(); !ok {
		t.Error("self-reference not resolved on SetInitializer")
	}
}

func TestRelativeOffset_TargetChecks(t *testing.T) {
	mod := ir.NewModule()
	b := constinit.New(mod, nil)

	decl, err := mod.Declare("external", ir.I64, ir.GlobalOptions{Linkage: ir.LinkExternal})
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}

	st := b.BeginStruct(nil)
	mustPanic(t, errors.KindBadTarget, func() {
		st.AddRelativeOffset(ir.I32, decl)
	})
	mustPanic(t, errors.KindBadTarget, func() {
		st.AddRelativeOffset(ir.I32, ir.NewInt(ir.I64, 4))
	})

	other := ir.NewModule()
	foreign, err := other.NewGlobal("foreign", ir.NewInt(ir.I64, 1), ir.GlobalOptions{})
	if err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}
	mustPanic(t, errors.KindBadTarget, func() {
		st.AddRelativeOffset(ir.I32, foreign)
	})

	mustPanic(t, errors.KindOverflow, func() {
		st.AddRelativeOffset(&ir.IntType{Bits: 128}, decl)
	})
}

func TestEndToEnd_CountThenData(t *testing.T) {
	b := newBuilder()
	st := b.BeginStruct(nil)
	count := st.AddPlaceholder()

	data := st.BeginArray(ir.I8)
	for _, v := range []uint64{1, 2, 3} {
		data.AddInt(ir.I8, v)
	}
	n := data.Size()
	data.FinishAndAddTo(st)

	st.FillPlaceholderInt(count, ir.I32, uint64(n))

	gv, err := st.FinishAndCreateGlobal("blob", ir.GlobalOptions{Align: 4, Constant: true})
	if err != nil {
		t.Fatalf("FinishAndCreateGlobal: %v", err)
	}
	b.Finalize()

	if got := gv.Init().String(); got != "{i32 3, [i8 1, i8 2, i8 3]}" {
		t.Errorf("initializer = %s, want {i32 3, [i8 1, i8 2, i8 3]}", got)
	}
	if !gv.IsConstant() || gv.Alignment() != 4 {
		t.Errorf("global attrs = const %v align %d, want const true align 4", gv.IsConstant(), gv.Alignment())
	}
}

func TestCreateGlobal_DuplicateName(t *testing.T) {
	b := newBuilder()
	arr := b.BeginArray(ir.I8)
	arr.AddInt(ir.I8, 1)
	if _, err := arr.FinishAndCreateGlobal("dup", ir.GlobalOptions{}); err != nil {
		t.Fatalf("first FinishAndCreateGlobal: %v", err)
	}

	arr2 := b.BeginArray(ir.I8)
	arr2.AddInt(ir.I8, 2)
	_, err := arr2.FinishAndCreateGlobal("dup", ir.GlobalOptions{})
	if err == nil {
		t.Fatal("duplicate global name accepted")
	}
	b.Finalize()
}
