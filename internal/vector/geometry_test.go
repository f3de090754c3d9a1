package vector

import (
	"image"
	"testing"
)

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
}

func TestIntersection(t *testing.T) {
	a, b := R(0, 0, 10, 10), R(5, 5, 10, 10)
	if !Intersects(a, b) {
		t.Fatalf("expected overlap")
	}
	if got := Intersection(a, b); got != R(5, 5, 5, 5) {
		t.Fatalf("unexpected intersection: %+v", got)
	}
	if Intersects(a, R(10, 0, 5, 5)) {
		t.Fatalf("touching edges must not count as overlap")
	}
	if got := Intersection(a, R(20, 20, 1, 1)); !got.Empty() {
		t.Fatalf("expected empty intersection, got %+v", got)
	}
}

func TestImageRoundTrip(t *testing.T) {
	ir := image.Rect(3, 4, 13, 24)
	if got := FromImage(ir).Image(); got != ir {
		t.Fatalf("round trip = %v, want %v", got, ir)
	}
	if got := R(0.5, 0.5, 2, 2).Image(); got != image.Rect(0, 0, 3, 3) {
		t.Fatalf("covering rect = %v", got)
	}
}
