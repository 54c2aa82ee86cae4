package output

import (
	"bytes"
	"strings"
	"testing"
)

type point struct {
	Name string `json:"name" yaml:"name"`
	X    int    `json:"x" yaml:"x"`
}

func (p point) Table(wide bool) *Table {
	t := &Table{Headers: []string{"NAME"}}
	if wide {
		t.Headers = append(t.Headers, "X")
		t.AddRow(p.Name, p.X)
		return t
	}
	t.AddRow(p.Name)
	return t
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("expected YAMLFormatter")
	}
	tf, ok := NewFormatter(FormatTable, true).(*TableFormatter)
	if !ok {
		t.Fatal("expected TableFormatter")
	}
	if !tf.Wide {
		t.Error("expected Wide=true for table formatter")
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, point{Name: "a", X: 42}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"name": "a"`) || !strings.Contains(out, `"x": 42`) {
		t.Errorf("unexpected JSON output:\n%s", out)
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, point{Name: "a", X: 42}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "name: a\nx: 42\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestTableFormatter_Format(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		table := &Table{
			Headers: []string{"NAME", "VALUE"},
			Rows:    [][]string{{"key1", "value1"}},
		}
		var buf bytes.Buffer
		if err := (&TableFormatter{}).Format(&buf, table); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if !strings.Contains(buf.String(), "NAME") || !strings.Contains(buf.String(), "key1") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("no headers", func(t *testing.T) {
		table := Table{Headers: []string{"NAME"}, Rows: [][]string{{"key1"}}}
		var buf bytes.Buffer
		if err := (&TableFormatter{NoHeaders: true}).Format(&buf, table); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if strings.Contains(buf.String(), "NAME") {
			t.Errorf("header rendered with NoHeaders:\n%s", buf.String())
		}
	})

	t.Run("tabular", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&TableFormatter{}).Format(&buf, point{Name: "a", X: 42}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if strings.Contains(buf.String(), "42") {
			t.Errorf("wide column rendered in narrow mode:\n%s", buf.String())
		}

		buf.Reset()
		if err := (&TableFormatter{Wide: true}).Format(&buf, point{Name: "a", X: 42}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if !strings.Contains(buf.String(), "42") {
			t.Errorf("wide column missing:\n%s", buf.String())
		}
	})

	t.Run("fallback to json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&TableFormatter{}).Format(&buf, map[string]int{"n": 1}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if !strings.Contains(buf.String(), `"n": 1`) {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

func TestTable_AddRow(t *testing.T) {
	var table Table
	table.AddRow("", nil, true, false, 7)
	want := []string{"-", "-", "yes", "no", "7"}
	for i, cell := range table.Rows[0] {
		if cell != want[i] {
			t.Errorf("cell %d = %q, want %q", i, cell, want[i])
		}
	}
}
