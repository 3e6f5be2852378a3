package convert

import (
	"strings"
	"testing"
)

func TestHTML_HeadingsAndParagraphs(t *testing.T) {
	in := `<html><head><title>ignored</title><style>p{}</style></head><body>
<h1>Owner Manual</h1>
<p>Welcome to your new scooter.</p>
<h2>Battery</h2>
<p>Charge   it
overnight.</p>
</body></html>`

	got, err := HTML([]byte(in))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	want := "# Owner Manual\n\nWelcome to your new scooter.\n\n## Battery\n\nCharge it overnight.\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHTML_DeepHeadingsCollapse(t *testing.T) {
	got, err := HTML([]byte("<body><h5>Deep</h5></body>"))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.HasPrefix(got, "### Deep") {
		t.Errorf("got %q, want ### heading", got)
	}
}

func TestHTML_ListsAndImages(t *testing.T) {
	in := `<body><ul><li>first</li><li>second</li></ul><img src="img/one.jpg" alt="x"></body>`
	got, err := HTML([]byte(in))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, want := range []string{"- first\n", "- second\n", "![](img/one.jpg)\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestHTML_SkipsChrome(t *testing.T) {
	in := `<body><nav><p>menu</p></nav><script>var x;</script><p>content</p><footer><p>legal</p></footer></body>`
	got, err := HTML([]byte(in))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if strings.Contains(got, "menu") || strings.Contains(got, "legal") || strings.Contains(got, "var x") {
		t.Errorf("chrome leaked into output:\n%s", got)
	}
	if !strings.Contains(got, "content") {
		t.Errorf("content missing:\n%s", got)
	}
}
