package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func skillDoc(name, description, body string) string {
	return fmt.Sprintf("---\nname: %s\ndescription: %s\n---\n\n%s", name, description, body)
}

// writeFile creates path (relative to root) with content, making parent
// directories as needed.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeSkill creates <root>/<dir>/SKILL.md.
func writeSkill(t *testing.T, root, dir, name, description, body string) string {
	t.Helper()
	writeFile(t, root, dir+"/SKILL.md", skillDoc(name, description, body))
	return filepath.Join(root, filepath.FromSlash(dir))
}

// scenarioTree builds the two-skill tree used by the end-to-end tests.
func scenarioTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSkill(t, root, "curated/utilities/skill-creator", "skill-creator", "Create new skills",
		"# Skill Creator\n\nFollow these steps to create a skill.\n")
	writeFile(t, root, "curated/utilities/skill-creator/scripts/init_skill.py", "print('init')\n")
	writeFile(t, root, "curated/utilities/skill-creator/references/workflows.md", "# Workflows\n")
	writeSkill(t, root, "experimental/nano-banana-pro", "nano-banana-pro", "Generate images",
		"# Nano Banana Pro\n\nImage generation helpers.\n")
	writeFile(t, root, "experimental/nano-banana-pro/scripts/generate_image.py", "print('gen')\n")
	return root
}

func openCatalog(t *testing.T, root string, opts ...Option) (*Catalog, *Report) {
	t.Helper()
	c, report, err := Open(t.Context(), root, opts...)
	require.NoError(t, err)
	return c, report
}

func summaryIDs(summaries []Summary) []string {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	return ids
}
