package render

import "testing"

func TestRender(t *testing.T) {
	fields := map[string]string{
		"FirstName": "Ada",
		"V2_Date":   "2026-09-15",
		"V2_Time":   "14:00",
	}

	t.Run("substitutes known placeholders", func(t *testing.T) {
		got := Render("Dear {FirstName}, see you on {V2_Date} at {V2_Time}.", fields)
		want := "Dear Ada, see you on 2026-09-15 at 14:00."
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("unknown placeholders pass through", func(t *testing.T) {
		got := Render("Hello {Nickname}", fields)
		if got != "Hello {Nickname}" {
			t.Errorf("unknown placeholder must stay, got %q", got)
		}
	})

	t.Run("literal braces pass through", func(t *testing.T) {
		template := `Config example: {"retry": true, "count": 3} and {}`
		if got := Render(template, fields); got != template {
			t.Errorf("literal braces must stay, got %q", got)
		}
	})

	t.Run("placeholder may repeat", func(t *testing.T) {
		got := Render("{FirstName} {FirstName}", fields)
		if got != "Ada Ada" {
			t.Errorf("expected repeated substitution, got %q", got)
		}
	})

	t.Run("empty field value substitutes to nothing", func(t *testing.T) {
		got := Render("V5: {V5_Date}", map[string]string{"V5_Date": ""})
		if got != "V5: " {
			t.Errorf("expected empty substitution, got %q", got)
		}
	})
}
