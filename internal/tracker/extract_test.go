package tracker_test

import (
	"testing"

	"copydeck/internal/testutil"
	"copydeck/internal/tracker"
)

func TestExtractTextItems(t *testing.T) {
	t.Run("flattens text across pages", func(t *testing.T) {
		file := testutil.NewFile("design",
			testutil.NewPage("1:0", "Home",
				testutil.NewText("1:1", "Welcome", 32, 10, 20, 200, 40),
			),
			testutil.NewPage("2:0", "About",
				testutil.NewText("2:1", "Who we are", 14, 0, 0, 100, 20),
			),
		)

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 2 {
			t.Fatalf("ExtractTextItems() returned %d items, want 2", len(items))
		}
		if items[0].PageID != "1:0" || items[0].PageName != "Home" {
			t.Errorf("item 0 page = %s/%s, want 1:0/Home", items[0].PageID, items[0].PageName)
		}
		if items[1].Content != "Who we are" {
			t.Errorf("item 1 content = %q, want %q", items[1].Content, "Who we are")
		}
	})

	t.Run("page filter limits traversal", func(t *testing.T) {
		file := testutil.NewFile("design",
			testutil.NewPage("1:0", "Home",
				testutil.NewText("1:1", "Welcome", 32, 10, 20, 200, 40),
			),
			testutil.NewPage("2:0", "About",
				testutil.NewText("2:1", "Who we are", 14, 0, 0, 100, 20),
			),
		)

		items := tracker.ExtractTextItems(file, []string{"2:0"})
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].ID != "2:1" {
			t.Errorf("item id = %s, want 2:1", items[0].ID)
		}
	})

	t.Run("outermost frame wins for nested frames", func(t *testing.T) {
		inner := testutil.NewFrame("f:2", "Inner", 10, 10, 50, 50,
			testutil.NewText("t:1", "Nested", 14, 15, 15, 30, 10),
		)
		outer := testutil.NewFrame("f:1", "Outer", 0, 0, 100, 100, inner)
		file := testutil.NewFile("design", testutil.NewPage("1:0", "Home", outer))

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].Frame == nil || items[0].Frame.ID != "f:1" {
			t.Errorf("item frame = %+v, want outer frame f:1", items[0].Frame)
		}
		if items[0].Frame.Width != 100 {
			t.Errorf("frame width = %v, want 100", items[0].Frame.Width)
		}
	})

	t.Run("text outside any frame has nil frame", func(t *testing.T) {
		file := testutil.NewFile("design",
			testutil.NewPage("1:0", "Home",
				testutil.NewText("t:1", "Loose", 14, 0, 0, 50, 10),
			),
		)

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].Frame != nil {
			t.Errorf("item frame = %+v, want nil", items[0].Frame)
		}
	})

	t.Run("skips text without bounding geometry", func(t *testing.T) {
		unbounded := tracker.Node{ID: "t:1", Type: "TEXT", Characters: "Ghost"}
		file := testutil.NewFile("design",
			testutil.NewPage("1:0", "Home", unbounded,
				testutil.NewText("t:2", "Real", 14, 0, 0, 50, 10),
			),
		)

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].ID != "t:2" {
			t.Errorf("item id = %s, want t:2", items[0].ID)
		}
	})

	t.Run("skips empty text nodes", func(t *testing.T) {
		file := testutil.NewFile("design",
			testutil.NewPage("1:0", "Home",
				testutil.NewText("t:1", "", 14, 0, 0, 50, 10),
			),
		)

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 0 {
			t.Fatalf("ExtractTextItems() returned %d items, want 0", len(items))
		}
	})

	t.Run("defaults font size when style is absent", func(t *testing.T) {
		node := tracker.Node{
			ID: "t:1", Type: "TEXT", Characters: "Plain",
			AbsoluteBoundingBox: &tracker.Rect{X: 0, Y: 0, Width: 50, Height: 10},
		}
		file := testutil.NewFile("design", testutil.NewPage("1:0", "Home", node))

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].FontSize != 14 {
			t.Errorf("font size = %v, want 14", items[0].FontSize)
		}
		if items[0].Style != "Body M" {
			t.Errorf("style = %q, want %q", items[0].Style, "Body M")
		}
	})

	t.Run("buckets styles by font size", func(t *testing.T) {
		tests := []struct {
			fontSize float64
			want     string
		}{
			{32, "Heading L"},
			{40, "Heading L"},
			{24, "Heading M"},
			{31, "Heading M"},
			{18, "Heading S"},
			{14, "Body M"},
			{17, "Body M"},
			{13, "Body S"},
			{10, "Body S"},
		}

		for _, tt := range tests {
			file := testutil.NewFile("design",
				testutil.NewPage("1:0", "Home",
					testutil.NewText("t:1", "Sample", tt.fontSize, 0, 0, 50, 10),
				),
			)
			items := tracker.ExtractTextItems(file, nil)
			if len(items) != 1 {
				t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
			}
			if items[0].Style != tt.want {
				t.Errorf("style for font size %v = %q, want %q", tt.fontSize, items[0].Style, tt.want)
			}
		}
	})

	t.Run("named text style wins over bucketing", func(t *testing.T) {
		node := testutil.NewText("t:1", "Title", 32, 0, 0, 200, 40)
		node.Styles = map[string]string{"text": "S:abc"}
		file := testutil.NewFile("design", testutil.NewPage("1:0", "Home", node))
		file.Styles = map[string]tracker.StyleMeta{
			"S:abc": {Name: "Display/Hero", StyleType: "TEXT"},
		}

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].Style != "Display/Hero" {
			t.Errorf("style = %q, want %q", items[0].Style, "Display/Hero")
		}
	})

	t.Run("unresolvable style reference falls back to bucketing", func(t *testing.T) {
		node := testutil.NewText("t:1", "Title", 32, 0, 0, 200, 40)
		node.Styles = map[string]string{"text": "S:missing"}
		file := testutil.NewFile("design", testutil.NewPage("1:0", "Home", node))

		items := tracker.ExtractTextItems(file, nil)
		if len(items) != 1 {
			t.Fatalf("ExtractTextItems() returned %d items, want 1", len(items))
		}
		if items[0].Style != "Heading L" {
			t.Errorf("style = %q, want %q", items[0].Style, "Heading L")
		}
	})
}
