package witness_test

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snasma/pkg/core"
	"snasma/pkg/witness"
)

// validLine builds one well-formed witness record for from_idx=1, to_idx=2,
// amount=250, nonce=0, with zeroed signature/pubkey/sibling fields — enough
// to exercise the parser's field counting and range checks without a real
// signature.
func validLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "1 2 250 0 ") // from_idx to_idx amount nonce
	fmt.Fprintf(&b, "0 0 0 ")     // sig.R.x sig.R.y sig.s
	fmt.Fprintf(&b, "0 0 1000 0 ") // pubkey_from.x pubkey_from.y balance_from nonce_from
	fmt.Fprintf(&b, "0 0 0 0 ")   // pubkey_to.x pubkey_to.y balance_to nonce_to
	for i := 0; i < 3*core.Depth; i++ {
		fmt.Fprintf(&b, "0 ")
	}
	return strings.TrimSpace(b.String())
}

func TestDeserializeHappyPath(t *testing.T) {
	r := strings.NewReader(validLine() + "\n")
	proofs, err := witness.Deserialize(r, 1)
	require.NoError(t, err)
	require.Len(t, proofs, 1)

	p := proofs[0]
	assert.EqualValues(t, 1, p.Stx.Tx.FromIdx)
	assert.EqualValues(t, 2, p.Stx.Tx.ToIdx)
	assert.EqualValues(t, 250, p.Stx.Tx.Amount)
	assert.EqualValues(t, 0, p.Stx.Nonce)
	assert.Equal(t, big.NewInt(1000), p.StateFrom.Balance)
}

func TestDeserializeSkipsBlankAndCommentLines(t *testing.T) {
	input := "# a comment\n\n" + validLine() + "\n  \n# trailing comment\n"
	r := strings.NewReader(input)
	proofs, err := witness.Deserialize(r, 5)
	require.NoError(t, err)
	assert.Len(t, proofs, 1)
}

func TestDeserializeStopsAtMaxRecords(t *testing.T) {
	input := validLine() + "\n" + validLine() + "\n" + validLine() + "\n"
	r := strings.NewReader(input)
	proofs, err := witness.Deserialize(r, 2)
	require.NoError(t, err)
	assert.Len(t, proofs, 2)
}

func TestDeserializeTruncatedLineIsParseError(t *testing.T) {
	r := strings.NewReader("1 2 250 0\n")
	_, err := witness.Deserialize(r, 1)
	require.Error(t, err)
	var pe *witness.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
}

func TestDeserializeNonNumericFieldIsParseError(t *testing.T) {
	line := strings.Replace(validLine(), "1 2 250 0", "1 2 not-a-number 0", 1)
	r := strings.NewReader(line + "\n")
	_, err := witness.Deserialize(r, 1)
	require.Error(t, err)
	var pe *witness.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestDeserializeZeroAmountIsRangeError(t *testing.T) {
	line := strings.Replace(validLine(), "1 2 250 0", "1 2 0 0", 1)
	r := strings.NewReader(line + "\n")
	_, err := witness.Deserialize(r, 1)
	require.Error(t, err)
	var re *witness.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "amount", re.Field)
}

func TestDeserializeOversizedAmountIsRangeError(t *testing.T) {
	tooBig := strconv.FormatUint(uint64(1)<<core.AmountBits, 10)
	line := strings.Replace(validLine(), "1 2 250 0", "1 2 "+tooBig+" 0", 1)
	r := strings.NewReader(line + "\n")
	_, err := witness.Deserialize(r, 1)
	require.Error(t, err)
	var re *witness.RangeError
	require.ErrorAs(t, err, &re)
}

func TestDeserializeOversizedIndexIsRangeError(t *testing.T) {
	tooBig := strconv.FormatUint(uint64(1)<<core.Depth, 10)
	line := strings.Replace(validLine(), "1 2 250 0", tooBig+" 2 250 0", 1)
	r := strings.NewReader(line + "\n")
	_, err := witness.Deserialize(r, 1)
	require.Error(t, err)
	var re *witness.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "from_idx", re.Field)
}
