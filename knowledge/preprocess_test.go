package knowledge

import "testing"

func TestPreprocess(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "code blocks",
			in:   "Here is some code: ```const x = 1;``` and `inline code`",
			want: "here is some code: and",
		},
		{
			name: "markdown structure",
			in:   "# Heading\nSee [the docs](https://example.com/docs) and ![diagram](img.png)",
			want: "heading see the docs and diagram",
		},
		{
			name: "emphasis",
			in:   "This is **bold**, __also bold__, *italic* and _italic_",
			want: "this is bold, also bold, italic and italic",
		},
		{
			name: "raw url keeps host and path",
			in:   "visit https://example.com/page?q=1 today",
			want: "visit example.com/page today",
		},
		{
			name: "mentions and html",
			in:   "hey @someone <b>look</b> at this",
			want: "hey look at this",
		},
		{
			name: "comments",
			in:   "before /* block\ncomment */ after // trailing",
			want: "before after",
		},
		{
			name: "block comment with emphasis inside",
			in:   "keep /* **secret** notes */ this",
			want: "keep this",
		},
		{
			name: "url before trailing comment",
			in:   "see https://example.com/a // note",
			want: "see example.com/a",
		},
		{
			name: "whitespace collapse",
			in:   "  a\t\tb\n\nc  ",
			want: "a b c",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "only markup",
			in:   "```gone```",
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Preprocess(tc.in); got != tc.want {
				t.Fatalf("Preprocess(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPreprocessIdempotent(t *testing.T) {
	in := "# Title\nSome **bold** text with `code` and https://example.com/x"
	once := Preprocess(in)
	if twice := Preprocess(once); twice != once {
		t.Fatalf("second pass changed output: %q -> %q", once, twice)
	}
}
