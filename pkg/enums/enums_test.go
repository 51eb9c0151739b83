package enums

import "testing"

func TestAdminRoleSatisfies(t *testing.T) {
	cases := []struct {
		have, need AdminRole
		want       bool
	}{
		{AdminRoleSuperadmin, AdminRoleAdmin, true},
		{AdminRoleSuperadmin, AdminRoleSuperadmin, true},
		{AdminRoleAdmin, AdminRoleAdmin, true},
		{AdminRoleAdmin, AdminRoleSuperadmin, false},
		{AdminRole("viewer"), AdminRoleAdmin, false},
		{AdminRoleSuperadmin, AdminRole("root"), false},
	}
	for _, tc := range cases {
		if got := tc.have.Satisfies(tc.need); got != tc.want {
			t.Fatalf("%s.Satisfies(%s) = %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if kind, err := ParseMediaKind(" IMAGE "); err != nil || kind != MediaKindImage {
		t.Fatalf("ParseMediaKind = %q, %v", kind, err)
	}
	if _, err := ParseMediaKind("audio"); err == nil {
		t.Fatal("expected audio to be rejected")
	}
	if cat, err := ParseMediaCategory("Wedding"); err != nil || cat != MediaCategoryWedding {
		t.Fatalf("ParseMediaCategory = %q, %v", cat, err)
	}
	if _, err := ParseMediaCategory("food"); err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
	if role, err := ParseAdminRole("SuperAdmin"); err != nil || role != AdminRoleSuperadmin {
		t.Fatalf("ParseAdminRole = %q, %v", role, err)
	}
}

func TestMediaKindFromMIME(t *testing.T) {
	if kind, ok := MediaKindFromMIME("image/webp"); !ok || kind != MediaKindImage {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind, ok := MediaKindFromMIME("video/mp4"); !ok || kind != MediaKindVideo {
		t.Fatalf("unexpected kind %q", kind)
	}
	if _, ok := MediaKindFromMIME("application/pdf"); ok {
		t.Fatal("expected pdf to be rejected")
	}
}
