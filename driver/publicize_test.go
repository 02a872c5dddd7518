package driver

import "testing"

func TestPublicize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"function", "fn get() -> i32 { 42 }", "pub fn get() -> i32 { 42 }"},
		{"already public", "pub fn get() {}\npub(crate) struct S;", "pub fn get() {}\npub(crate) struct S;"},
		{"qualified function", "unsafe fn f() {}", "pub unsafe fn f() {}"},
		{"attributes and docs", "/// doc\n#[derive(Debug)]\nstruct P { x: i32, pub y: i32 }",
			"/// doc\n#[derive(Debug)]\npub struct P { pub x: i32, pub y: i32 }"},
		{"tuple struct", "struct T(i32);", "pub struct T(i32);"},
		{"inherent impl", "impl P { fn new() -> P { P { x: 0, y: 0 } } }", "impl P { pub fn new() -> P { P { x: 0, y: 0 } } }"},
		{"trait impl", "impl Default for P { fn default() -> P { P::new() } }", "impl Default for P { fn default() -> P { P::new() } }"},
		{"items", "use std::fmt;\nconst N: u8 = 1;\nstatic S: u8 = 2;\ntype A = u8;\nenum E { X }\ntrait Tr {}\nmod m {}",
			"pub use std::fmt;\npub const N: u8 = 1;\npub static S: u8 = 2;\npub type A = u8;\npub enum E { X }\npub trait Tr {}\npub mod m {}"},
		{"untouched kinds", "macro_rules! m { () => {} }\nextern \"C\" { fn abs(x: i32) -> i32; }",
			"macro_rules! m { () => {} }\nextern \"C\" { fn abs(x: i32) -> i32; }"},
		{"syntax error", "fn f( {", "fn f( {"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Publicize(tt.src); got != tt.want {
				t.Fatalf("Publicize =\n  %q\nwant\n  %q", got, tt.want)
			}
		})
	}
}
