package failure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/types"
)

func TestFailAndKindOf(t *testing.T) {
	err := Fail(TypeMismatch, "expected %s", "i32")
	require.Equal(t, TypeMismatch, KindOf(err))
	require.Equal(t, "TypeMismatch: expected i32", err.Error())
}

func TestClassifySentinels(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{cursor.ErrUnexpectedEnd, UnexpectedEnd},
		{cursor.ErrMalformedLEB, MalformedLeb},
		{cursor.ErrMalformedUTF8, MalformedUtf8},
		{types.ErrInvalidResultArity, InvalidResultArity},
		{types.ErrZeroFlagExpected, ZeroFlagExpected},
		{types.ErrLimitMinGreaterThanMax, LimitMinimumGreaterThanMaximum},
		{types.ErrLimitTooLarge, MemorySizeLimitExceeded},
		{types.ErrMalformed, MalformedValueType},
	}
	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			got := Classify(c.err)
			require.Equal(t, c.kind, KindOf(got))
		})
	}
}

func TestClassifyUnknownFallsBackToUnspecifiedMalformed(t *testing.T) {
	got := Classify(errors.New("boom"))
	require.Equal(t, UnspecifiedMalformed, KindOf(got))
}

func TestWrapAtPreservesKind(t *testing.T) {
	err := Fail(UnknownLocal, "local 3")
	wrapped := WrapAt(err, 0x42)
	require.Equal(t, UnknownLocal, KindOf(wrapped))
	require.Contains(t, wrapped.Error(), "0x42")
}

type kinderStub struct{ k Kind }

func (k kinderStub) Error() string { return "stub" }
func (k kinderStub) Kind() Kind    { return k.k }

func TestKindOfRespectsKinderInterface(t *testing.T) {
	require.Equal(t, UnknownGlobal, KindOf(kinderStub{k: UnknownGlobal}))
}
