package input

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Loader loads target URLs
type Loader struct {
	scheme string
}

// NewLoader creates loader. Lines without a scheme get http://.
func NewLoader() *Loader {
	return &Loader{scheme: "http://"}
}

// Load loads one target per line from file. Blank lines and lines starting
// with # are skipped.
func (l *Loader) Load(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, l.Normalize(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	return urls, nil
}

// Normalize adds the default scheme to a bare host
func (l *Loader) Normalize(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return l.scheme + strings.TrimLeft(target, "/")
}
