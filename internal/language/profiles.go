package language

import "regexp"

// Profile describes how wraith treats source files of one language:
// which extensions map to it, where logical sections begin, and what a
// line comment looks like.
type Profile struct {
	ID            string
	Extensions    []string
	SectionStart  *regexp.Regexp
	CommentPrefix string
}

// builtin is the closed set of supported language profiles. Section
// patterns match declaration-like lines; they anchor the truncator's
// section boundaries and are applied to left-trimmed lines.
var builtin = []*Profile{
	{
		ID:            "python",
		Extensions:    []string{"py"},
		SectionStart:  regexp.MustCompile(`^(def|class|async def)\b`),
		CommentPrefix: "#",
	},
	{
		ID:            "javascript",
		Extensions:    []string{"js", "jsx", "ts", "tsx"},
		SectionStart:  regexp.MustCompile(`^(function|class|export\s+\w+)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "java",
		Extensions:    []string{"java"},
		SectionStart:  regexp.MustCompile(`^(public|private|protected|static)?\s*(class|interface|enum)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "go",
		Extensions:    []string{"go"},
		SectionStart:  regexp.MustCompile(`^(func|type)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "cpp",
		Extensions:    []string{"cpp", "hpp", "cxx", "hxx"},
		SectionStart:  regexp.MustCompile(`^(class|struct|enum|template|namespace)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "csharp",
		Extensions:    []string{"cs"},
		SectionStart:  regexp.MustCompile(`^(public|private|protected|internal)?\s*(class|struct|enum|namespace)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "ruby",
		Extensions:    []string{"rb"},
		SectionStart:  regexp.MustCompile(`^(def|class|module)\b`),
		CommentPrefix: "#",
	},
	{
		ID:            "php",
		Extensions:    []string{"php"},
		SectionStart:  regexp.MustCompile(`^(function|class|trait)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "rust",
		Extensions:    []string{"rs"},
		SectionStart:  regexp.MustCompile(`^(fn|struct|enum|impl|trait)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "swift",
		Extensions:    []string{"swift"},
		SectionStart:  regexp.MustCompile(`^(func|class|struct|enum)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "kotlin",
		Extensions:    []string{"kt"},
		SectionStart:  regexp.MustCompile(`^(fun|class|object|interface)\b`),
		CommentPrefix: "//",
	},
	{
		ID:            "bash",
		Extensions:    []string{"sh"},
		SectionStart:  regexp.MustCompile(`^(function)\b`),
		CommentPrefix: "#",
	},
}
