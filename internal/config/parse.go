package config

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/duskrelay/chatserver/errors"
)

// parse reads a textual key=value configuration file into a generic map,
// one key per non-blank, non-comment line. Values that parse as integers
// are decoded as int64 so mapstructure can coerce them into int fields;
// everything else is kept as a string.
//
// This mirrors the "textual key=value file" described in spec.md §6. It is
// deliberately simpler than the teacher's encoding/toml package (which
// implements full TOML via a generated lexer/parser this repo has no way
// to regenerate) — only the decode-into-struct step of that package
// (github.com/davidlazar/mapstructure, here with weakly typed input and no
// decode hook) is reused; the
// line-oriented parse step below replaces the TOML grammar.
func parse(data []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, errors.New("config: line %d: missing '=' in %q", lineNo, line)
		}

		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		val = strings.Trim(val, `"`)

		if key == "" {
			return nil, errors.New("config: line %d: empty key", lineNo)
		}

		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			out[key] = n
		} else {
			out[key] = val
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "config: scan")
	}
	return out, nil
}
