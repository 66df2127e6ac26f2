package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// vcfHeaderColumns is the number of fixed columns before sample names on a
// VCF #CHROM header line.
const vcfHeaderColumns = 9

// readSamples loads an ordered sample identifier list from either a VCF
// file (names taken from the #CHROM header line) or a plain
// newline-separated list.
func readSamples(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples source %s: %w", path, err)
	}
	defer f.Close()

	var plain []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "##") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			fields := strings.Split(line, "\t")
			if len(fields) <= vcfHeaderColumns {
				return nil, fmt.Errorf("VCF header in %s lists no samples", path)
			}
			return fields[vcfHeaderColumns:], nil
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			plain = append(plain, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples source %s: %w", path, err)
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("samples source %s is empty", path)
	}
	return plain, nil
}
