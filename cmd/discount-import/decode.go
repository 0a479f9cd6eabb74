package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
)

// maxLineSize bounds a single JSON-lines record.
const maxLineSize = 1 << 20

// record is one decoded line of an import file.
type record struct {
	file string
	line int
	def  discount.Definition
	err  error
}

// streamFile opens a gzip-compressed JSON-lines file and calls fn for every
// non-empty line. Decoding failures are passed to fn rather than aborting the
// stream.
func streamFile(ctx context.Context, path string, fn func(record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		def, err := decodeDefinition(raw)
		if err := fn(record{file: path, line: line, def: def, err: err}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// decodeDefinition parses one catalog entry. Absent "active" means true.
func decodeDefinition(raw []byte) (discount.Definition, error) {
	def := discount.Definition{Active: true}
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return def, errors.New("record must be a JSON object")
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			def.ID, err = d.Str()
		case "code":
			def.Code, err = d.Str()
		case "amountType":
			var v string
			v, err = d.Str()
			def.AmountType = discount.AmountType(v)
		case "amount":
			def.Amount, err = decodeDecimal(d)
		case "appliesTo":
			var v string
			v, err = d.Str()
			def.AppliesTo = discount.Scope(v)
		case "active":
			def.Active, err = d.Bool()
		case "allowedProgramTemplateIds":
			err = d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				def.AllowedProgramTemplateIDs = append(def.AllowedProgramTemplateIDs, s)
				return err
			})
		case "tierAmounts":
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := decodeDecimal(d)
				def.TierAmounts = append(def.TierAmounts, v)
				return err
			})
		case "minRegistrationsPerFamily":
			def.MinRegistrationsPerFamily, err = d.Int()
		case "description":
			def.Description, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	if err != nil {
		return def, err
	}
	if strings.TrimSpace(def.Code) == "" {
		return def, errors.New("code is required")
	}
	if discount.PreviewID(def.Code) == "" {
		return def, errors.Errorf("code %q must contain a letter or digit", def.Code)
	}
	return def, nil
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(strings.Trim(n.String(), `"`))
}
