package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadMat parses a 0/1 adjacency matrix, one comma separated row per
// line. Blank lines and lines starting with # are skipped.
func ReadMat(path string) ([][]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var m [][]int

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		row := make([]int, 0)
		for _, v := range strings.Split(text, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			if i != 0 && i != 1 {
				return nil, fmt.Errorf("%s:%d: entry %d is not 0 or 1", path, line, i)
			}
			row = append(row, i)
		}
		m = append(m, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, r := range m {
		if len(r) != len(m) {
			return nil, fmt.Errorf("%s: row %d has %d entries, want %d", path, i, len(r), len(m))
		}
	}
	return m, nil
}

// AdjList turns m into undirected adjacency lists. An edge exists when
// either m[i][j] or m[j][i] is set; self loops are dropped.
func AdjList(m [][]int) [][]int {
	l := make([][]int, len(m))

	for i := range m {
		for j := range m {
			if i != j && (m[i][j] == 1 || m[j][i] == 1) {
				l[i] = append(l[i], j)
			}
		}
	}

	return l
}
