package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// badRequestError marks malformed input that never reached the domain.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeBody reads the request body and hands it to fn as a jx decoder.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(body) == 0 {
		return badRequest("request body required")
	}
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return badRequest("request body must be a JSON object")
	}
	if err := fn(d); err != nil {
		var bre *badRequestError
		if errors.As(err, &bre) {
			return err
		}
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
	if err != nil {
		return decimal.Zero, badRequest("invalid number %s", n)
	}
	return v, nil
}

func readDecimalPtr(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := readDecimal(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	if d.Next() == jx.Null {
		return out, d.Null()
	}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func readDecimals(d *jx.Decoder) ([]decimal.Decimal, error) {
	var out []decimal.Decimal
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := readDecimal(d)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func readBoolPtr(d *jx.Decoder) (*bool, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Bool()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readTimePtr(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Plain dates are taken as midnight UTC.
		if t, err = time.Parse(time.DateOnly, s); err != nil {
			return nil, badRequest("invalid timestamp %q", s)
		}
	}
	return &t, nil
}

func writeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func writeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func writeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}
