// cmd/kg-index/init.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init <repo-path>",
	Short: "Scaffold a .kg-index.yaml for a repository checkout",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoPath := args[0]

	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", absPath)
	}

	configPath := filepath.Join(absPath, ".kg-index.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		return nil
	}

	repoName := filepath.Base(absPath)
	defaultBranch := detectDefaultBranch(absPath)

	doc := map[string]interface{}{
		"code-index": map[string]interface{}{
			"name":           repoName,
			"default_branch": defaultBranch,
			"include":        detectIncludes(absPath),
			"exclude":        []string{},
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	return nil
}

func detectDefaultBranch(repoPath string) string {
	headPath := filepath.Join(repoPath, ".git", "HEAD")
	if data, err := os.ReadFile(headPath); err == nil {
		content := string(data)
		if strings.HasPrefix(content, "ref: refs/heads/") {
			return strings.TrimSpace(strings.TrimPrefix(content, "ref: refs/heads/"))
		}
	}
	return "main"
}

func detectIncludes(repoPath string) []string {
	var includes []string
	if hasFiles(repoPath, "*.py") {
		includes = append(includes, "**/*.py")
	}
	if hasFiles(repoPath, "*.js") || hasFiles(repoPath, "*.ts") {
		includes = append(includes, "**/*.js", "**/*.ts", "**/*.jsx", "**/*.tsx")
	}
	if len(includes) == 0 {
		includes = []string{"**/*.py", "**/*.js", "**/*.ts"}
	}
	return includes
}

func hasFiles(dir string, pattern string) bool {
	if matches, _ := filepath.Glob(filepath.Join(dir, pattern)); len(matches) > 0 {
		return true
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*", pattern))
	return len(matches) > 0
}
