package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
)

// uuDecode implements classic Unix uuencode/uudecode, the quiet, compatible
// scheme described in original_source/kl3m_data/utils/uu_utils.py. The
// standard library has no uuencode support, so this is a small direct port
// of the historical algorithm (distinct from ascii85/base64): each encoded
// line begins with a length byte, followed by groups of 4 characters that
// pack 3 input bytes into 6-bit fields offset by 0x20.
func uuDecode(content []byte) (name string, data []byte, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return "", nil, errors.New("empty uuencoded input")
	}
	header := scanner.Text()
	var mode int
	if _, _, err := parseBeginHeader(header, &mode, &name); err != nil {
		return "", nil, err
	}

	var out bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		if line == "end" {
			return name, out.Bytes(), nil
		}
		decoded, err := uuDecodeLine(line)
		if err != nil {
			return "", nil, fmt.Errorf("decode uuencoded line: %w", err)
		}
		out.Write(decoded)
	}
	if err := scanner.Err(); err != nil {
		return "", nil, err
	}
	return "", nil, errors.New("uuencoded input missing end marker")
}

func parseBeginHeader(header string, mode *int, name *string) (int, string, error) {
	var parsedMode int
	var parsedName string
	n, err := fmt.Sscanf(header, "begin %o %s", &parsedMode, &parsedName)
	if err != nil || n != 2 {
		return 0, "", fmt.Errorf("invalid uuencoded header %q", header)
	}
	*mode = parsedMode
	*name = parsedName
	return parsedMode, parsedName, nil
}

// uuDecodeLine decodes one uuencoded line: the first character encodes the
// byte count, and the remainder is groups of 4 printable characters each
// representing 3 bytes.
func uuDecodeLine(line string) ([]byte, error) {
	if line == "" {
		return nil, nil
	}
	n := int(line[0]-' ') & 0x3f
	if n == 0 {
		return nil, nil
	}
	body := line[1:]
	out := make([]byte, 0, n)
	for i := 0; i+4 <= len(body) && len(out) < n; i += 4 {
		c1 := (body[i] - ' ') & 0x3f
		c2 := (body[i+1] - ' ') & 0x3f
		c3 := (body[i+2] - ' ') & 0x3f
		c4 := (body[i+3] - ' ') & 0x3f
		out = append(out, c1<<2|c2>>4)
		if len(out) < n {
			out = append(out, c2<<4|c3>>2)
		}
		if len(out) < n {
			out = append(out, c3<<6|c4)
		}
	}
	return out[:n], nil
}
