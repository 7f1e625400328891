package placeholder

import (
	"image"
	"reflect"
	"strings"
	"testing"
)

func TestNewRecord_ClampsToBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	rec := NewRecord(image.Rect(-10, 80, 50, 140), bounds, 85, "{{NAME}}")

	want := Box{Left: 0, Top: 80, Width: 50, Height: 20}
	if rec.Box != want {
		t.Errorf("clamped box = %+v, want %+v", rec.Box, want)
	}
	if rec.Left != want.Left || rec.Top != want.Top || rec.Width != want.Width || rec.Height != want.Height {
		t.Errorf("flat fields %+v disagree with box %+v", rec, want)
	}
	if rec.Confidence != 85 {
		t.Errorf("confidence = %v, want 85", rec.Confidence)
	}
	if got := rec.Rect(); got != image.Rect(0, 80, 50, 100) {
		t.Errorf("Rect() = %v", got)
	}
}

func TestNewRecord_OutsideBoundsIsEmpty(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	rec := NewRecord(image.Rect(200, 200, 250, 230), bounds, 70, "{{DATE}}")
	if !rec.Box.Empty() {
		t.Errorf("expected empty box, got %+v", rec.Box)
	}
}

func TestBoxRoundTrip(t *testing.T) {
	r := image.Rect(5, 6, 35, 16)
	if got := BoxFromRect(r).Rect(); got != r {
		t.Errorf("round trip = %v, want %v", got, r)
	}
}

func TestMapKeys_Sorted(t *testing.T) {
	m := Map{"ROLE": {}, "DATE": {}, "NAME": {}}
	want := []string{"DATE", "NAME", "ROLE"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		m        Map
		required []string
		wantErr  string
	}{
		{name: "name present", m: Map{"NAME": {}}},
		{name: "name missing", m: Map{"DATE": {}}, wantErr: "NAME"},
		{name: "empty map", m: Map{}, wantErr: "NAME"},
		{name: "custom requirements met", m: Map{"EVENT": {}, "DATE": {}}, required: []string{"EVENT", "DATE"}},
		{name: "custom requirement missing", m: Map{"EVENT": {}}, required: []string{"EVENT", "DATE"}, wantErr: "DATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.m, tt.required...)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSuggestions(t *testing.T) {
	all := []string{"COURSE", "DATE", "EVENT", "ORGANIZATION", "POSITION", "SIGNATURE"}

	if got := Suggestions(Map{}); !reflect.DeepEqual(got, all) {
		t.Errorf("Suggestions(empty) = %v, want %v", got, all)
	}

	m := Map{"DATE": {}, "EVENT": {}, "NAME": {}}
	want := []string{"COURSE", "ORGANIZATION", "POSITION", "SIGNATURE"}
	if got := Suggestions(m); !reflect.DeepEqual(got, want) {
		t.Errorf("Suggestions = %v, want %v", got, want)
	}
}
