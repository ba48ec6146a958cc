package logreader

import (
	"os"

	"golang.org/x/text/encoding/charmap"
)

// LastLines reads the last n non-empty lines of a file, oldest first.
func LastLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	fileSize := stat.Size()
	if fileSize == 0 || n <= 0 {
		return nil, nil
	}

	// Read backwards in chunks until n complete lines are buffered.
	const chunkSize = 4096
	var buffer []byte
	offset := fileSize
	for offset > 0 && countLines(buffer) <= n {
		readSize := int64(chunkSize)
		if offset < readSize {
			readSize = offset
		}
		offset -= readSize

		chunk := make([]byte, readSize)
		if _, err := file.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		buffer = append(chunk, buffer...)
	}

	lines := splitLines(buffer, offset == 0)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	dec := charmap.Windows1252.NewDecoder()
	out := make([]string, len(lines))
	for i, l := range lines {
		if s, err := dec.Bytes(l); err == nil {
			out[i] = string(s)
		} else {
			out[i] = string(l)
		}
	}
	return out, nil
}

func countLines(b []byte) int {
	count := 0
	for _, c := range b {
		if c == '\n' {
			count++
		}
	}
	return count
}

// splitLines splits buffer into non-empty lines. When the buffer does not
// start at the beginning of the file its first, partial line is dropped.
func splitLines(buffer []byte, fromStart bool) [][]byte {
	var lines [][]byte
	start := 0
	first := true
	for i := 0; i <= len(buffer); i++ {
		if i < len(buffer) && buffer[i] != '\n' {
			continue
		}
		line := trimEOL(buffer[start:i])
		if (fromStart || !first) && len(line) > 0 {
			lines = append(lines, line)
		}
		first = false
		start = i + 1
	}
	return lines
}
