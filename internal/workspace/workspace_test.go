package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func catalogWith(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		skillDir := filepath.Join(dir, name)
		if err := os.MkdirAll(skillDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("---\nname: "+name+"\n---\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func linkNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestProvision_LinksAuthorizedSkills(t *testing.T) {
	catalog := catalogWith(t, "web-search", "pdf-export", "db-admin")
	m := NewManager(t.TempDir(), catalog, testLogger())

	ws, err := m.Provision("agent-1", []string{"web-search", "pdf-export"})
	if err != nil {
		t.Fatal(err)
	}
	if ws == "" || !m.Exists("agent-1") {
		t.Fatal("workspace not created")
	}

	got := linkNames(t, m.SkillsDir("agent-1"))
	want := []string{"pdf-export", "web-search"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("linked skills = %v, want %v", got, want)
	}

	// Links must be absolute symlinks into the catalog.
	target, err := os.Readlink(filepath.Join(m.SkillsDir("agent-1"), "web-search"))
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(target) {
		t.Errorf("symlink target %q is not absolute", target)
	}
}

func TestProvision_ReconcileAddsAndRemoves(t *testing.T) {
	catalog := catalogWith(t, "a", "b", "c")
	m := NewManager(t.TempDir(), catalog, testLogger())

	if _, err := m.Provision("agent-1", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	// Re-authorize: drop b, add c.
	if _, err := m.Provision("agent-1", []string{"a", "c"}); err != nil {
		t.Fatal(err)
	}

	got := linkNames(t, m.SkillsDir("agent-1"))
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("reconciled links = %v, want [a c]", got)
	}
}

func TestProvision_MissingCatalogSkillSkipped(t *testing.T) {
	catalog := catalogWith(t, "real")
	m := NewManager(t.TempDir(), catalog, testLogger())

	if _, err := m.Provision("agent-1", []string{"real", "ghost"}); err != nil {
		t.Fatal(err)
	}
	got := linkNames(t, m.SkillsDir("agent-1"))
	if len(got) != 1 || got[0] != "real" {
		t.Errorf("links = %v, want [real]", got)
	}
}

func TestProvision_RepairsDriftedLink(t *testing.T) {
	catalog := catalogWith(t, "a")
	m := NewManager(t.TempDir(), catalog, testLogger())

	if _, err := m.Provision("agent-1", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(m.SkillsDir("agent-1"), "a")
	if err := os.Remove(link); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("/somewhere/else", link); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Provision("agent-1", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if target == "/somewhere/else" {
		t.Error("drifted link was not repaired")
	}
}

func TestProvision_EmptyAgentID(t *testing.T) {
	m := NewManager(t.TempDir(), t.TempDir(), testLogger())
	if _, err := m.Provision("", nil); err == nil {
		t.Error("expected error for empty agent id")
	}
}

func TestProvision_ConcurrentSameAgent(t *testing.T) {
	catalog := catalogWith(t, "a", "b", "c")
	m := NewManager(t.TempDir(), catalog, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Provision("agent-1", []string{"a", "b", "c"}); err != nil {
				t.Errorf("concurrent provision: %v", err)
			}
		}()
	}
	wg.Wait()

	got := linkNames(t, m.SkillsDir("agent-1"))
	if len(got) != 3 {
		t.Errorf("links after concurrent provisioning = %v", got)
	}
}

func TestDelete(t *testing.T) {
	catalog := catalogWith(t, "a")
	m := NewManager(t.TempDir(), catalog, testLogger())

	if _, err := m.Provision("agent-1", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("agent-1"); err != nil {
		t.Fatal(err)
	}
	if m.Exists("agent-1") {
		t.Error("workspace still exists after delete")
	}
	// Deleting again is a no-op.
	if err := m.Delete("agent-1"); err != nil {
		t.Errorf("second delete should be nil, got %v", err)
	}
}
