package cmd

import (
	"reflect"
	"strings"
	"testing"

	"rusti/driver"
)

func TestPrepareInput(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		gen   int
		ok    bool
		entry string
	}{
		{"empty", "  \n", 0, false, ""},
		{"comment", "// nothing here", 0, false, ""},
		{"function", "pub fn add(a: i32, b: i32) -> i32 { a + b }", 0, true, ""},
		{"items", "struct P { x: i32 }\nuse std::fmt;", 3, true, ""},
		{"macro call", `println!("hi");`, 2, true, "rusti_stmt_2"},
		{"let", "let x = 5;", 7, true, "rusti_stmt_7"},
		{"mixed", "fn f() {}\nf();", 1, true, "rusti_stmt_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, ok := PrepareInput(tt.src, tt.gen)
			if ok != tt.ok {
				t.Fatalf("PrepareInput ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}

			if sub.Entry != tt.entry {
				t.Fatalf("Entry = %q, want %q", sub.Entry, tt.entry)
			}

			if tt.entry == "" {
				if sub.Body != tt.src {
					t.Fatalf("items were rewritten:\n%s", sub.Body)
				}
				return
			}

			if !strings.HasPrefix(sub.Body, "pub fn "+tt.entry+"() {\n") || !strings.Contains(sub.Body, tt.src) {
				t.Fatalf("statements not wrapped:\n%s", sub.Body)
			}
			if driver.Classify(sub.Body) != driver.InputItems {
				t.Fatalf("wrapped input is not an item:\n%s", sub.Body)
			}
		})
	}
}

func TestDescribeItems(t *testing.T) {
	prog := &driver.Program{Items: []driver.Item{
		{Kind: driver.ItemFunction, Name: "add", Public: true,
			Params: []driver.Param{{Name: "a", Type: "i32"}, {Name: "b", Type: "i32"}}, Result: "i32"},
		{Kind: driver.ItemFunction, Name: "hello"},
		{Kind: driver.ItemStruct, Name: "Point", Public: true},
		{Kind: driver.ItemImpl, Name: "Point"},
	}}

	want := []string{
		"pub fn add(a: i32, b: i32) -> i32",
		"fn hello()",
		"pub struct Point",
		"impl Point",
	}
	if got := describeItems(prog); !reflect.DeepEqual(got, want) {
		t.Fatalf("describeItems =\n  %q\nwant\n  %q", got, want)
	}
}

func TestEvalContextNeverCancelled(t *testing.T) {
	ctx := evalContext()
	if ctx.Done() != nil || ctx.Err() != nil {
		t.Fatal("evaluations run under a cancellable context")
	}
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("evaluations run under a deadline")
	}
}
