package keystore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"OdysseyFarmer/internal/model"
)

// ErrBadKey is returned for lines that are not 0x-prefixed 32-byte hex keys.
var ErrBadKey = errors.New("bad pk")

// LineError reports one rejected line (1-based, counting blank lines).
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string { return fmt.Sprintf("%v on line %d", e.Err, e.Line) }
func (e LineError) Unwrap() error { return e.Err }

// Result is the outcome of Load.
type Result struct {
	Accounts   []model.Account
	Errors     []LineError
	Duplicates int
}

// Load derives one account per secret line. Blank lines are ignored, bad
// lines are reported individually, duplicates keep the first occurrence.
func Load(lines []string) Result {
	var res Result
	seen := make(map[string]struct{}, len(lines))
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		acct, err := Parse(line)
		if err != nil {
			res.Errors = append(res.Errors, LineError{Line: i + 1, Err: err})
			continue
		}
		if _, dup := seen[acct.Identity]; dup {
			res.Duplicates++
			continue
		}
		seen[acct.Identity] = struct{}{}
		res.Accounts = append(res.Accounts, acct)
	}
	return res
}

// Parse normalizes a single secret to 0x-prefixed form and derives its identity.
func Parse(secret string) (model.Account, error) {
	s := Normalize(secret)
	if len(s) != 66 || !isHex(s[2:]) {
		return model.Account{}, ErrBadKey
	}
	key, err := crypto.HexToECDSA(s[2:])
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return model.NewAccount(crypto.PubkeyToAddress(key.PublicKey).Hex(), key), nil
}

// Normalize trims and prefixes 0x when missing.
func Normalize(secret string) string {
	s := strings.TrimSpace(secret)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ReadFile returns the lines of a newline-delimited key file. A missing file
// yields no lines.
func ReadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read keys: %w", err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	return lines, nil
}

// FileSource reads keys from a path on every call.
type FileSource string

func (p FileSource) Lines() ([]string, error) { return ReadFile(string(p)) }
