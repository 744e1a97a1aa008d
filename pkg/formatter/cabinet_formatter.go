// File: pkg/formatter/cabinet_formatter.go
package formatter

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cabinet/internal/provider/factory"
	"cabinet/pkg/storage"
)

// Output formats accepted by --output
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
)

func ValidateOutput(output string) error {
	switch strings.ToLower(output) {
	case OutputTable, OutputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q. Use %s or %s", output, OutputTable, OutputYAML)
	}
}

type CabinetFormatter struct{}

func NewCabinetFormatter() *CabinetFormatter {
	return &CabinetFormatter{}
}

// --- Table views ---

func (f *CabinetFormatter) FormatItemList(items []storage.ItemInfo) string {
	table := NewTable([]string{"KEY", "TYPE", "SIZE", "LAST MODIFIED"})

	for _, item := range items {
		size, modified := "-", "-"
		if item.Type == storage.File {
			size = storage.FormatBytes(item.Size)
			modified = formatTime(item.LastModifiedUTC, "2006-01-02 15:04:05")
		}
		key := item.Key
		if item.Type == storage.Directory {
			key = mutedStyle.Render(key + "/")
		}
		table.AddRow([]string{key, item.Type.String(), size, modified})
	}

	return table.String()
}

func (f *CabinetFormatter) FormatItemDetails(cabinet string, item storage.ItemInfo) string {
	var result string

	result += FormatHeaderSection("Item: " + item.Key)
	result += "\n\n"

	result += FormatSectionTitle("Overview")
	result += "\n"

	overviewTable := NewTable([]string{"Parameter", "Value"})

	details := [][2]string{
		{"Cabinet", cabinet},
		{"Provider", item.Provider.String()},
		{"Exists", fmt.Sprintf("%t", item.Exists)},
	}
	if item.Exists {
		details = append(details, [2]string{"Type", item.Type.String()})
		if item.Type == storage.File {
			details = append(details,
				[2]string{"Size", fmt.Sprintf("%s (%d bytes)", storage.FormatBytes(item.Size), item.Size)},
				[2]string{"Last Modified", formatTime(item.LastModifiedUTC, time.RFC1123)},
			)
		}
	}

	for _, detail := range details {
		overviewTable.AddRow(detail[:])
	}

	result += overviewTable.String()
	result += "\n"

	return result
}

func (f *CabinetFormatter) FormatSaveResults(results []storage.SaveResult) string {
	table := NewTable([]string{"KEY", "STATUS", "DETAIL"})
	for _, r := range results {
		status := statusCell(r.Success)
		if r.Success && r.AlreadyExists {
			status = mutedStyle.Render("skipped")
		}
		table.AddRow([]string{r.Key, status, r.ErrorMessage()})
	}
	return table.String() + "\n" + summary(results)
}

func (f *CabinetFormatter) FormatMoveResults(results []storage.MoveResult) string {
	table := NewTable([]string{"SOURCE", "DESTINATION", "STATUS", "DETAIL"})
	for _, r := range results {
		status := statusCell(r.Success)
		if r.Success && r.AlreadyExists {
			status = mutedStyle.Render("skipped")
		}
		table.AddRow([]string{r.SourceKey, r.DestKey, status, r.ErrorMessage()})
	}
	return table.String() + "\n" + summary(results)
}

func (f *CabinetFormatter) FormatCabinetList(cabinets []factory.CabinetStatus) string {
	table := NewTable([]string{"CABINET", "TYPE", "STATUS", "PROBLEM"})
	for _, c := range cabinets {
		status := successStyle.Render("ready")
		if !c.Ready {
			status = failureStyle.Render("not ready")
		}
		table.AddRow([]string{c.Name, c.Type, status, c.Problem})
	}
	return table.String()
}

func (f *CabinetFormatter) FormatUsage(cabinet, prefix string, bytes int64) string {
	scope := cabinet
	if prefix != "" {
		scope = cabinet + ":" + prefix
	}
	return fmt.Sprintf("%s: %s (%d bytes)", scope, storage.FormatBytes(bytes), bytes)
}

// --- YAML views ---

type itemView struct {
	Key          string `yaml:"key"`
	Type         string `yaml:"type"`
	Exists       bool   `yaml:"exists"`
	Provider     string `yaml:"provider,omitempty"`
	Size         int64  `yaml:"size,omitempty"`
	LastModified string `yaml:"last_modified,omitempty"`
}

type resultView struct {
	Key           string `yaml:"key"`
	Destination   string `yaml:"destination,omitempty"`
	Success       bool   `yaml:"success"`
	AlreadyExists bool   `yaml:"already_exists,omitempty"`
	Error         string `yaml:"error,omitempty"`
}

type usageView struct {
	Cabinet string `yaml:"cabinet"`
	Prefix  string `yaml:"prefix,omitempty"`
	Bytes   int64  `yaml:"bytes"`
	Human   string `yaml:"human"`
}

func (f *CabinetFormatter) ItemsYAML(items []storage.ItemInfo) (string, error) {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item))
	}
	return marshal(views)
}

func (f *CabinetFormatter) ItemYAML(item storage.ItemInfo) (string, error) {
	return marshal(toItemView(item))
}

func (f *CabinetFormatter) SaveResultsYAML(results []storage.SaveResult) (string, error) {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		views = append(views, resultView{Key: r.Key, Success: r.Success, AlreadyExists: r.AlreadyExists, Error: r.ErrorMessage()})
	}
	return marshal(views)
}

func (f *CabinetFormatter) MoveResultsYAML(results []storage.MoveResult) (string, error) {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		views = append(views, resultView{Key: r.SourceKey, Destination: r.DestKey, Success: r.Success, AlreadyExists: r.AlreadyExists, Error: r.ErrorMessage()})
	}
	return marshal(views)
}

func (f *CabinetFormatter) UsageYAML(cabinet, prefix string, bytes int64) (string, error) {
	return marshal(usageView{Cabinet: cabinet, Prefix: prefix, Bytes: bytes, Human: storage.FormatBytes(bytes)})
}

func toItemView(item storage.ItemInfo) itemView {
	view := itemView{
		Key:      item.Key,
		Type:     item.Type.String(),
		Exists:   item.Exists,
		Provider: item.Provider.String(),
	}
	if item.Exists && item.Type == storage.File {
		view.Size = item.Size
		view.LastModified = formatTime(item.LastModifiedUTC, time.RFC3339)
	}
	return view
}

func marshal(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode yaml: %w", err)
	}
	return string(out), nil
}

func statusCell(ok bool) string {
	if ok {
		return successStyle.Render("ok")
	}
	return failureStyle.Render("failed")
}

func summary[R interface{ Succeeded() bool }](results []R) string {
	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	return fmt.Sprintf("%d succeeded, %d failed", len(results)-failed, failed)
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(layout)
}
