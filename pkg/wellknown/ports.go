// Package wellknown maps the port literal names ASA uses in service
// specifications ("eq https", "port-object eq www") to port numbers.
package wellknown

import (
	"bytes"
	"encoding/csv"
	"io"
	"log"
	"strconv"
	"strings"

	_ "embed"
)

//go:embed port_literals.csv
var portLiteralsData string

var portRegistry map[string]int

func init() {
	portRegistry = make(map[string]int)
	reader := csv.NewReader(bytes.NewBufferString(portLiteralsData))
	reader.TrimLeadingSpace = true
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Fatalf("Failed to read header from embedded port_literals.csv: %v", err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to parse embedded port_literals.csv: %v", err)
		}
		if len(record) < 2 {
			continue
		}
		port, err := strconv.Atoi(record[1])
		if err != nil {
			continue
		}
		portRegistry[strings.ToLower(strings.TrimSpace(record[0]))] = port
	}
}

// Port returns the port number for an ASA port literal. Numeric tokens
// come back as themselves.
func Port(name string) (int, bool) {
	if n, err := strconv.Atoi(name); err == nil {
		return n, true
	}
	port, ok := portRegistry[strings.ToLower(name)]
	return port, ok
}
