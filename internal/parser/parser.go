// Package parser turns raw intake logs into validated log entries.
// Each line is parsed independently; a malformed line is recorded as an error
// and never aborts the rest of the file.
package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joss/worklog/internal/domain"
)

// maxLineSize bounds a single intake line. Prompt previews are privacy
// filtered and truncated upstream, so lines stay well under this.
const maxLineSize = 1024 * 1024

// LineError describes one rejected intake line.
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result holds the entries and per-line errors from one intake file.
type Result struct {
	Entries []domain.LogEntry `json:"entries"`
	Errors  []LineError       `json:"errors"`
}

// Parser decodes intake logs into validated entries.
type Parser struct {
	validate *validator.Validate
}

// New creates a parser.
func New() *Parser {
	return &Parser{validate: validator.New()}
}

// rawEntry is the wire shape of one intake line. Timestamp and PromptLength
// are pointers so "absent" and "zero" stay distinguishable for validation.
type rawEntry struct {
	Timestamp    *float64 `json:"timestamp" validate:"required"`
	SessionKey   string   `json:"sessionKey" validate:"required"`
	UserPrompt   string   `json:"userPrompt"`
	PromptLength *int     `json:"promptLength" validate:"omitempty,gte=0"`
	Cwd          string   `json:"cwd"`
	GitBranch    string   `json:"gitBranch"`
	GitRemote    string   `json:"gitRemote"`
}

// ParseFile reads and parses one intake file. The returned error is non-nil
// only when the file cannot be opened or read at all.
func (p *Parser) ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening intake file: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse parses one line per record from r. Blank lines are skipped silently;
// malformed lines are collected in Result.Errors.
func (p *Parser) Parse(r io.Reader) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, err := p.parseLine(line)
		if err != nil {
			res.Errors = append(res.Errors, LineError{Line: lineNo, Reason: err.Error()})
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("reading intake file: %w", err)
	}

	return res, nil
}

func (p *Parser) parseLine(line string) (domain.LogEntry, error) {
	var raw rawEntry
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return domain.LogEntry{}, fmt.Errorf("invalid json: %v", err)
	}
	if err := p.validate.Struct(raw); err != nil {
		return domain.LogEntry{}, fmt.Errorf("invalid record: %v", firstViolation(err))
	}

	entry := domain.LogEntry{
		Timestamp:     *raw.Timestamp,
		SessionKey:    raw.SessionKey,
		PromptPreview: raw.UserPrompt,
		Cwd:           raw.Cwd,
		GitBranch:     raw.GitBranch,
		GitRemote:     raw.GitRemote,
	}
	if raw.PromptLength != nil {
		entry.PromptLength = *raw.PromptLength
	}
	return entry, nil
}

// firstViolation renders the first failed validation as "field: rule" so line
// errors stay short and stable.
func firstViolation(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Sprintf("%s failed %s", verrs[0].Field(), verrs[0].Tag())
	}
	return err.Error()
}
