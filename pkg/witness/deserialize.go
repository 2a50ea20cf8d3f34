package witness

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"snasma/pkg/core"
)

// scalarFieldCount is the number of whitespace-separated tokens preceding
// the three D-long sibling arrays: from_idx, to_idx, amount, nonce, R.x,
// R.y, s, pubkey_from.x, pubkey_from.y, balance_from, nonce_from,
// pubkey_to.x, pubkey_to.y, balance_to, nonce_to.
const scalarFieldCount = 15

// ParseError reports a malformed or truncated witness line. The batch is
// aborted before any record is returned.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("witness: parse error at line %d: %s", e.Line, e.Msg)
}

// RangeError reports a well-formed field whose declared bit-width or
// positivity invariant is violated. Like ParseError, this aborts the batch
// before any constraint generation happens.
type RangeError struct {
	Line  int
	Field string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("witness: range error at line %d: field %q out of range", e.Line, e.Field)
}

// Deserialize reads up to maxRecords non-blank, non-comment lines from r
// and parses each into a TxProof, in this fixed field order:
//
//	from_idx to_idx amount nonce R.x R.y s
//	pubkey_from.x pubkey_from.y balance_from nonce_from
//	pubkey_to.x pubkey_to.y balance_to nonce_to
//	before_from[0..D-1] before_to[0..D-1] after_to[0..D-1]
//
// Lines beginning with '#' and blank lines are skipped and do not count
// against maxRecords. Field elements are decimal integers interpreted
// modulo the field prime. Parsing never attempts repair: the first
// malformed or out-of-range record aborts the whole batch.
func Deserialize(r io.Reader, maxRecords int) ([]TxProof, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var proofs []TxProof
	lineNo := 0
	for len(proofs) < maxRecords && scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		proof, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, *proof)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("witness: reading input: %w", err)
	}
	return proofs, nil
}

type tokenCursor struct {
	fields []string
	pos    int
	line   int
}

func (c *tokenCursor) next() string {
	tok := c.fields[c.pos]
	c.pos++
	return tok
}

func (c *tokenCursor) uint(name string, bits uint) (uint64, error) {
	tok := c.next()
	v, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, &ParseError{Line: c.line, Msg: fmt.Sprintf("field %q: %v", name, err)}
	}
	if bits < 64 && v >= uint64(1)<<bits {
		return 0, &RangeError{Line: c.line, Field: name}
	}
	return v, nil
}

func (c *tokenCursor) field(name string) (*big.Int, error) {
	tok := c.next()
	var e fr.Element
	if _, err := e.SetString(tok); err != nil {
		return nil, &ParseError{Line: c.line, Msg: fmt.Sprintf("field %q: %v", name, err)}
	}
	return e.BigInt(new(big.Int)), nil
}

func (c *tokenCursor) fieldArray(name string) ([core.Depth]*big.Int, error) {
	var arr [core.Depth]*big.Int
	for i := 0; i < core.Depth; i++ {
		v, err := c.field(fmt.Sprintf("%s[%d]", name, i))
		if err != nil {
			return arr, err
		}
		arr[i] = v
	}
	return arr, nil
}

func parseLine(line string, lineNo int) (*TxProof, error) {
	fields := strings.Fields(line)
	want := scalarFieldCount + 3*core.Depth
	if len(fields) != want {
		return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("expected %d fields, got %d", want, len(fields))}
	}

	c := &tokenCursor{fields: fields, line: lineNo}

	fromIdx, err := c.uint("from_idx", core.Depth)
	if err != nil {
		return nil, err
	}
	toIdx, err := c.uint("to_idx", core.Depth)
	if err != nil {
		return nil, err
	}
	amount, err := c.uint("amount", core.AmountBits)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, &RangeError{Line: lineNo, Field: "amount"}
	}
	nonce, err := c.uint("nonce", core.Depth)
	if err != nil {
		return nil, err
	}

	rx, err := c.field("sig.R.x")
	if err != nil {
		return nil, err
	}
	ry, err := c.field("sig.R.y")
	if err != nil {
		return nil, err
	}
	s, err := c.field("sig.s")
	if err != nil {
		return nil, err
	}

	fromPkX, err := c.field("pubkey_from.x")
	if err != nil {
		return nil, err
	}
	fromPkY, err := c.field("pubkey_from.y")
	if err != nil {
		return nil, err
	}
	balanceFrom, err := c.field("balance_from")
	if err != nil {
		return nil, err
	}
	nonceFrom, err := c.uint("nonce_from", core.Depth)
	if err != nil {
		return nil, err
	}

	toPkX, err := c.field("pubkey_to.x")
	if err != nil {
		return nil, err
	}
	toPkY, err := c.field("pubkey_to.y")
	if err != nil {
		return nil, err
	}
	balanceTo, err := c.field("balance_to")
	if err != nil {
		return nil, err
	}
	nonceTo, err := c.uint("nonce_to", core.Depth)
	if err != nil {
		return nil, err
	}

	beforeFrom, err := c.fieldArray("before_from")
	if err != nil {
		return nil, err
	}
	beforeTo, err := c.fieldArray("before_to")
	if err != nil {
		return nil, err
	}
	afterTo, err := c.fieldArray("after_to")
	if err != nil {
		return nil, err
	}

	proof := &TxProof{
		Stx: SignedTx{
			Tx:    OnchainTx{FromIdx: fromIdx, ToIdx: toIdx, Amount: amount},
			Nonce: nonce,
			Sig:   Signature{R: Point{X: rx, Y: ry}, S: s},
		},
		StateFrom: AccountState{
			PubKey:  Point{X: fromPkX, Y: fromPkY},
			Balance: balanceFrom,
			Nonce:   nonceFrom,
		},
		StateTo: AccountState{
			PubKey:  Point{X: toPkX, Y: toPkY},
			Balance: balanceTo,
			Nonce:   nonceTo,
		},
		BeforeFrom: beforeFrom,
		BeforeTo:   beforeTo,
		AfterTo:    afterTo,
	}

	if !proof.Stx.IsValid() {
		return nil, &RangeError{Line: lineNo, Field: "tx"}
	}
	if !proof.StateFrom.IsValid() {
		return nil, &RangeError{Line: lineNo, Field: "state_from.nonce"}
	}
	if !proof.StateTo.IsValid() {
		return nil, &RangeError{Line: lineNo, Field: "state_to.nonce"}
	}

	return proof, nil
}
