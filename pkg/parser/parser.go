// Package parser loads account snapshots from JSON, YAML and edge-list files
// and writes them back as edge lists.
package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/poi-engine/pkg/models"
)

// Format is a snapshot file format
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatEdgeList Format = "edgelist"
)

// Edge-list directives
const (
	balanceDirective = "@balance"
	heightDirective  = "@height"
)

// DefaultHeight is the height of an edge-list snapshot without @height
const DefaultHeight = 1

// ParseError reports a malformed edge-list line
type ParseError struct {
	Line    int
	Content string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s (%q)", e.Line, e.Reason, e.Content)
}

// FormatForPath picks the format from the file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".txt", ".edges", ".edgelist":
		return FormatEdgeList, nil
	default:
		return "", fmt.Errorf("unsupported snapshot file extension: %q", filepath.Ext(path))
	}
}

// LoadSnapshot reads a snapshot file in the format given by its extension.
// The snapshot is returned as parsed; validation is left to the caller.
func LoadSnapshot(path string) (*models.Snapshot, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	snapshot, err := ReadSnapshot(file, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return snapshot, nil
}

// ReadSnapshot decodes a snapshot from r
func ReadSnapshot(r io.Reader, format Format) (*models.Snapshot, error) {
	switch format {
	case FormatJSON:
		var snapshot models.Snapshot
		if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	case FormatYAML:
		var snapshot models.Snapshot
		if err := yaml.NewDecoder(r).Decode(&snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	case FormatEdgeList:
		return ParseEdgeList(r)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}

// edgeListBuilder collects accounts in order of first appearance
type edgeListBuilder struct {
	snapshot   *models.Snapshot
	index      map[string]int
	hasBalance []bool
}

func (b *edgeListBuilder) account(address string) int {
	if i, ok := b.index[address]; ok {
		return i
	}
	i := len(b.snapshot.Accounts)
	b.index[address] = i
	b.snapshot.Accounts = append(b.snapshot.Accounts, models.Account{Address: address})
	b.hasBalance = append(b.hasBalance, false)
	return i
}

// ParseEdgeList reads the edge-list format:
//
//	# comment
//	@height 720
//	@balance alice 100 80
//	alice bob 2.5
//	bob carol
//
// Each edge line is "from to [weight]" with weight defaulting to 1. A
// @balance line sets the balance and optionally the coin-day weighted
// balance of an account; accounts without one get balance 1, and the
// coin-day weighted balance defaults to the balance.
func ParseEdgeList(r io.Reader) (*models.Snapshot, error) {
	b := &edgeListBuilder{
		snapshot: &models.Snapshot{Height: DefaultHeight},
		index:    make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		var err error
		switch parts[0] {
		case heightDirective:
			err = b.parseHeight(parts)
		case balanceDirective:
			err = b.parseBalance(parts)
		default:
			err = b.parseEdge(parts)
		}
		if err != nil {
			return nil, &ParseError{Line: lineNumber, Content: line, Reason: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i := range b.snapshot.Accounts {
		if !b.hasBalance[i] {
			b.snapshot.Accounts[i].Balance = 1
			b.snapshot.Accounts[i].CoinDayWeightedBalance = 1
		}
	}
	return b.snapshot, nil
}

func (b *edgeListBuilder) parseHeight(parts []string) error {
	if len(parts) != 2 {
		return fmt.Errorf("expected %s <height>", heightDirective)
	}
	height, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid height: %v", err)
	}
	b.snapshot.Height = height
	return nil
}

func (b *edgeListBuilder) parseBalance(parts []string) error {
	if len(parts) != 3 && len(parts) != 4 {
		return fmt.Errorf("expected %s <address> <balance> [cdw]", balanceDirective)
	}
	balance, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Errorf("invalid balance: %v", err)
	}
	cdw := balance
	if len(parts) == 4 {
		if cdw, err = strconv.ParseFloat(parts[3], 64); err != nil {
			return fmt.Errorf("invalid coin-day weighted balance: %v", err)
		}
	}

	i := b.account(parts[1])
	b.snapshot.Accounts[i].Balance = balance
	b.snapshot.Accounts[i].CoinDayWeightedBalance = cdw
	b.hasBalance[i] = true
	return nil
}

func (b *edgeListBuilder) parseEdge(parts []string) error {
	if len(parts) != 2 && len(parts) != 3 {
		return fmt.Errorf("expected <from> <to> [weight]")
	}
	weight := 1.0
	if len(parts) == 3 {
		w, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return fmt.Errorf("invalid weight: %v", err)
		}
		weight = w
	}

	from := b.account(parts[0])
	b.account(parts[1])
	b.snapshot.Accounts[from].Outlinks = append(b.snapshot.Accounts[from].Outlinks,
		models.Outlink{Counterparty: parts[1], Weight: weight})
	return nil
}

// WriteEdgeList writes snapshot in the edge-list format. Reading the output
// back with ParseEdgeList yields the same accounts in the same order.
func WriteEdgeList(w io.Writer, snapshot *models.Snapshot) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d\n", heightDirective, snapshot.Height)
	for _, account := range snapshot.Accounts {
		fmt.Fprintf(bw, "%s %s %s %s\n", balanceDirective, account.Address,
			formatFloat(account.Balance), formatFloat(account.CoinDayWeightedBalance))
	}
	for _, account := range snapshot.Accounts {
		for _, link := range account.Outlinks {
			fmt.Fprintf(bw, "%s %s %s\n", account.Address, link.Counterparty, formatFloat(link.Weight))
		}
	}

	return bw.Flush()
}

// SaveSnapshot writes snapshot to path in the format given by its extension
func SaveSnapshot(path string, snapshot *models.Snapshot) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(snapshot)
	case FormatYAML:
		encoder := yaml.NewEncoder(file)
		encoder.SetIndent(2)
		if err = encoder.Encode(snapshot); err == nil {
			err = encoder.Close()
		}
	default:
		err = WriteEdgeList(file, snapshot)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
