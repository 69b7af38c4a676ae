package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/guluwater/navadmin/pkg/nav"
)

// SeedData is the default dataset installed into an empty store. Both
// backends consume the same dataset; sites reference categories by name so
// the assigned ids are free to differ between backends.
type SeedData struct {
	Categories []SeedCategory `yaml:"categories"`
	Sites      []SeedSite     `yaml:"sites"`
	Users      []SeedUser     `yaml:"users"`
	Settings   []SeedSetting  `yaml:"settings"`
}

// SeedCategory seeds one category.
type SeedCategory struct {
	Name        string `yaml:"name"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
	SortOrder   int    `yaml:"sort_order"`
}

// SeedSite seeds one site. Category is the category name, resolved at
// install time.
type SeedSite struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Category    string `yaml:"category"`
	SortOrder   int    `yaml:"sort_order"`
}

// SeedUser seeds one user. PasswordHash is a precomputed hash; the core
// never hashes passwords itself.
type SeedUser struct {
	Username     string `yaml:"username"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

// SeedSetting seeds one setting.
type SeedSetting struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// LoadSeedFile reads a YAML seed dataset from disk.
func LoadSeedFile(path string) (*SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// Validate checks that every seeded site references a seeded category.
func (s *SeedData) Validate() error {
	names := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.Name == "" {
			return fmt.Errorf("seed category with empty name")
		}
		if names[c.Name] {
			return fmt.Errorf("duplicate seed category %q", c.Name)
		}
		names[c.Name] = true
	}
	for _, site := range s.Sites {
		if err := nav.ValidateSite(site.Name, site.URL); err != nil {
			return fmt.Errorf("seed site %q: %w", site.Name, err)
		}
		if site.Category != "" && !names[site.Category] {
			return fmt.Errorf("seed site %q references unknown category %q", site.Name, site.Category)
		}
	}
	return nil
}

// DefaultSeed returns the canonical default dataset. The two historical
// backends shipped diverging seeds; this dataset supersedes both.
func DefaultSeed() *SeedData {
	return &SeedData{
		Categories: []SeedCategory{
			{Name: "My Services", Icon: "🏠", Description: "Personal and team services", SortOrder: 1},
			{Name: "Frontend Frameworks", Icon: "⚛️", Description: "Frontend frameworks and libraries", SortOrder: 2},
			{Name: "Developer Tools", Icon: "🛠️", Description: "Development and debugging tools", SortOrder: 3},
			{Name: "Learning Resources", Icon: "📚", Description: "Programming tutorials and references", SortOrder: 4},
			{Name: "Tech Communities", Icon: "👥", Description: "Discussion and Q&A communities", SortOrder: 5},
			{Name: "Utilities", Icon: "🔧", Description: "Everyday development utilities", SortOrder: 6},
		},
		Sites: []SeedSite{
			{Name: "VitePress Blog", URL: "http://vitepress.guluwater.com/", Description: "Vue 3 powered blog", Icon: "💧", Category: "My Services", SortOrder: 1},
			{Name: "Office Tools", URL: "http://officetools.guluwater.com/", Description: "Office tooling collection", Icon: "🛠️", Category: "My Services", SortOrder: 2},
			{Name: "Mock Data Generator", URL: "http://mockdatagenerator.guluwater.com/", Description: "Smart mock data generator", Icon: "🔄", Category: "My Services", SortOrder: 3},

			{Name: "Vue.js", URL: "https://vuejs.org/", Description: "The progressive JavaScript framework", Icon: "💚", Category: "Frontend Frameworks", SortOrder: 1},
			{Name: "React", URL: "https://reactjs.org/", Description: "UI library from Meta", Icon: "⚛️", Category: "Frontend Frameworks", SortOrder: 2},
			{Name: "Angular", URL: "https://angular.io/", Description: "Frontend framework from Google", Icon: "🅰️", Category: "Frontend Frameworks", SortOrder: 3},
			{Name: "Svelte", URL: "https://svelte.dev/", Description: "Compile-time optimized framework", Icon: "🔥", Category: "Frontend Frameworks", SortOrder: 4},

			{Name: "VS Code", URL: "https://code.visualstudio.com/", Description: "Code editor from Microsoft", Icon: "💙", Category: "Developer Tools", SortOrder: 1},
			{Name: "WebStorm", URL: "https://www.jetbrains.com/webstorm/", Description: "Web IDE from JetBrains", Icon: "🌊", Category: "Developer Tools", SortOrder: 2},
			{Name: "Chrome DevTools", URL: "https://developer.chrome.com/docs/devtools/", Description: "Browser developer tools", Icon: "🔍", Category: "Developer Tools", SortOrder: 3},
			{Name: "Figma", URL: "https://figma.com/", Description: "Collaborative design tool", Icon: "🎨", Category: "Developer Tools", SortOrder: 4},
			{Name: "GitHub", URL: "https://github.com/", Description: "Code hosting and collaboration", Icon: "🐙", Category: "Developer Tools", SortOrder: 5},
			{Name: "GitLab", URL: "https://gitlab.com/", Description: "DevOps platform", Icon: "🦊", Category: "Developer Tools", SortOrder: 6},

			{Name: "MDN Web Docs", URL: "https://developer.mozilla.org/", Description: "Authoritative web platform docs", Icon: "📖", Category: "Learning Resources", SortOrder: 1},
			{Name: "freeCodeCamp", URL: "https://www.freecodecamp.org/", Description: "Free coding curriculum", Icon: "🔥", Category: "Learning Resources", SortOrder: 2},
			{Name: "JavaScript.info", URL: "https://javascript.info/", Description: "In-depth JavaScript tutorial", Icon: "📚", Category: "Learning Resources", SortOrder: 3},
			{Name: "LeetCode", URL: "https://leetcode.com/", Description: "Algorithm practice", Icon: "🧩", Category: "Learning Resources", SortOrder: 4},
			{Name: "roadmap.sh", URL: "https://roadmap.sh/", Description: "Developer learning roadmaps", Icon: "🗺️", Category: "Learning Resources", SortOrder: 5},

			{Name: "Stack Overflow", URL: "https://stackoverflow.com/", Description: "Programming Q&A", Icon: "📚", Category: "Tech Communities", SortOrder: 1},
			{Name: "GitHub Discussions", URL: "https://github.com/discussions", Description: "Community discussions on GitHub", Icon: "💬", Category: "Tech Communities", SortOrder: 2},
			{Name: "Dev.to", URL: "https://dev.to/", Description: "Developer blogging community", Icon: "👩‍💻", Category: "Tech Communities", SortOrder: 3},
			{Name: "Hacker News", URL: "https://news.ycombinator.com/", Description: "Tech news and discussion", Icon: "🗞️", Category: "Tech Communities", SortOrder: 4},
			{Name: "V2EX", URL: "https://www.v2ex.com/", Description: "Creative worker community", Icon: "💭", Category: "Tech Communities", SortOrder: 5},

			{Name: "Can I Use", URL: "https://caniuse.com/", Description: "Browser compatibility tables", Icon: "✅", Category: "Utilities", SortOrder: 1},
			{Name: "RegExr", URL: "https://regexr.com/", Description: "Regular expression playground", Icon: "🔤", Category: "Utilities", SortOrder: 2},
			{Name: "Postman", URL: "https://www.postman.com/", Description: "API development and testing", Icon: "📮", Category: "Utilities", SortOrder: 3},
			{Name: "TinyPNG", URL: "https://tinypng.com/", Description: "Image compression", Icon: "🐼", Category: "Utilities", SortOrder: 4},
			{Name: "JSON Editor Online", URL: "https://jsoneditoronline.org/", Description: "JSON viewer and editor", Icon: "📝", Category: "Utilities", SortOrder: 5},
			{Name: "Carbon", URL: "https://carbon.now.sh/", Description: "Pretty code screenshots", Icon: "🖼️", Category: "Utilities", SortOrder: 6},
		},
		Users: []SeedUser{
			// bcrypt hash supplied by the deployment; this placeholder is not a
			// usable credential.
			{Username: "admin", Email: "admin@guluwater.com", PasswordHash: "$2a$12$invalid.seed.hash.replace.at.deploy", Role: "admin"},
		},
		Settings: []SeedSetting{
			{Key: "site_title", Value: "Gulu Navigation", Type: "string", Description: "Site title"},
			{Key: "site_description", Value: "Quick access to frequently used sites", Type: "string", Description: "Site description"},
			{Key: "enable_registration", Value: "false", Type: "boolean", Description: "Allow self registration"},
			{Key: "items_per_page", Value: "20", Type: "number", Description: "Items shown per page"},
			{Key: "theme_config", Value: `{"primary_color":"#3b82f6","secondary_color":"#64748b","dark_mode":false}`, Type: "json", Description: "Theme configuration"},
			{Key: "contact_email", Value: "admin@guluwater.com", Type: "string", Description: "Contact address"},
		},
	}
}
