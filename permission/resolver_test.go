package permission

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type failingUniverse struct{}

func (failingUniverse) Permissions(context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	reg := NewRegistry()
	for _, p := range []string{"read", "write", "delete", "manage"} {
		if err := reg.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p, err)
		}
	}
	reg.Freeze()

	roles := NewRoleManager(reg)
	if err := roles.RegisterRole("auditor", []string{"read"}); err != nil {
		t.Fatalf("RegisterRole: %v", err)
	}
	roles.Freeze()

	r, err := NewResolver("admin", reg, roles)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestAdminGetsUniverse(t *testing.T) {
	r := newTestResolver(t)
	set, err := r.Effective(context.Background(), []Role{{Name: "admin"}})
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	want := []string{"delete", "manage", "read", "write"}
	if !reflect.DeepEqual(set.Names(), want) {
		t.Fatalf("expected %v, got %v", want, set.Names())
	}
}

func TestUnionOfRoles(t *testing.T) {
	r := newTestResolver(t)
	roles := []Role{
		{Name: "viewer", Permissions: []string{"read"}},
		{Name: "editor", Permissions: []string{"read", "write"}},
	}
	set, err := r.Effective(context.Background(), roles)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if !reflect.DeepEqual(set.Names(), []string{"read", "write"}) {
		t.Fatalf("unexpected %v", set.Names())
	}

	ok, _ := r.Authorize(context.Background(), roles, "delete")
	if ok {
		t.Fatalf("delete must not be granted")
	}
	ok, _ = r.Authorize(context.Background(), roles, "write")
	if !ok {
		t.Fatalf("write should be granted")
	}
}

func TestNoRolesGrantsNothing(t *testing.T) {
	r := newTestResolver(t)
	set, err := r.Effective(context.Background(), nil)
	if err != nil || len(set) != 0 {
		t.Fatalf("expected empty set, got %v %v", set, err)
	}
}

func TestCatalogFallback(t *testing.T) {
	r := newTestResolver(t)
	set, _ := r.Effective(context.Background(), []Role{{Name: "auditor"}, {Name: "unknown"}})
	if !reflect.DeepEqual(set.Names(), []string{"read"}) {
		t.Fatalf("expected catalog permissions, got %v", set.Names())
	}

	// Explicit empty permission lists are authoritative.
	set, _ = r.Effective(context.Background(), []Role{{Name: "auditor", Permissions: []string{}}})
	if len(set) != 0 {
		t.Fatalf("explicit empty role must grant nothing, got %v", set.Names())
	}
}

func TestAdminAuthorizeSkipsUniverse(t *testing.T) {
	r, err := NewResolver("admin", failingUniverse{}, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	ok, err := r.Authorize(context.Background(), []Role{{Name: "admin"}}, "anything")
	if err != nil || !ok {
		t.Fatalf("admin should short-circuit, ok=%v err=%v", ok, err)
	}
	if _, err := r.Effective(context.Background(), []Role{{Name: "admin"}}); err == nil {
		t.Fatalf("universe failure should surface from Effective")
	}
}

func TestPrimaryRole(t *testing.T) {
	r := newTestResolver(t)
	cases := []struct {
		roles []Role
		want  string
	}{
		{[]Role{{Name: "editor"}, {Name: "admin"}}, "admin"},
		{[]Role{{Name: "editor"}, {Name: "viewer"}}, "editor"},
		{nil, "user"},
	}
	for _, tc := range cases {
		if got := r.PrimaryRole(tc.roles, "user"); got != tc.want {
			t.Fatalf("PrimaryRole(%v) = %q, want %q", tc.roles, got, tc.want)
		}
	}
}

func TestRegistryAndRoleManagerRules(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(""); err == nil {
		t.Fatalf("expected empty name error")
	}
	_ = reg.Register("read")
	if err := reg.Register("read"); err == nil {
		t.Fatalf("expected duplicate error")
	}
	reg.Freeze()
	if err := reg.Register("write"); err == nil {
		t.Fatalf("expected frozen error")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected one permission")
	}

	rm := NewRoleManager(reg)
	if err := rm.RegisterRole("x", []string{"write"}); err == nil {
		t.Fatalf("expected unknown permission error")
	}
	if err := rm.RegisterRole("x", []string{"read"}); err != nil {
		t.Fatalf("RegisterRole: %v", err)
	}
	if err := rm.RegisterRole("x", nil); err == nil {
		t.Fatalf("expected duplicate role error")
	}
	got, _ := rm.Lookup("x")
	got.Add("mutated")
	again, _ := rm.Lookup("x")
	if again.Has("mutated") {
		t.Fatalf("Lookup must return a copy")
	}
}
