package analyzer

import (
	"regexp"
	"strings"
)

// skillVocabulary is the fixed set of recognized skill tokens. Matching is
// case-insensitive on word boundaries; the canonical spelling below is what
// ends up in the extracted skill list.
var skillVocabulary = []string{
	// Programming languages
	"JavaScript", "TypeScript", "Python", "Java", "C#", "C++", "PHP", "Ruby", "Go", "Rust", "Swift", "Kotlin",
	"Scala", "R", "MATLAB", "Perl", "Shell", "Bash", "PowerShell",

	// Web technologies
	"HTML", "CSS", "SASS", "LESS", "React", "Vue", "Angular", "Svelte", "jQuery", "Node.js", "Express",
	"Next.js", "Nuxt", "Gatsby", "Redux", "MobX", "Webpack", "Vite", "Babel",

	// Backend frameworks
	"Django", "Flask", "FastAPI", "Spring", "Spring Boot", "Laravel", "Symfony", "Rails", "ASP.NET", ".NET Core",
	"NestJS", "Koa", "Fastify",

	// Databases
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Cassandra", "DynamoDB", "Elasticsearch", "SQLite", "Oracle",
	"SQL Server", "MariaDB", "Neo4j", "CouchDB",

	// Cloud & DevOps
	"AWS", "Azure", "GCP", "Google Cloud", "Docker", "Kubernetes", "Jenkins", "GitLab CI", "GitHub Actions",
	"CircleCI", "Travis CI", "Terraform", "Ansible", "Puppet", "Chef",

	// Mobile
	"React Native", "Flutter", "Ionic", "Xamarin", "Android", "iOS",

	// Data & AI
	"TensorFlow", "PyTorch", "Keras", "scikit-learn", "Pandas", "NumPy", "Apache Spark", "Hadoop", "Kafka",
	"Machine Learning", "Deep Learning", "NLP", "Computer Vision", "Data Science",

	// Testing
	"Jest", "Mocha", "Chai", "Cypress", "Selenium", "Playwright", "JUnit", "PyTest", "PHPUnit",

	// Others
	"GraphQL", "REST", "gRPC", "WebSocket", "OAuth", "JWT", "Git", "GitHub", "GitLab", "Bitbucket",
	"Jira", "Agile", "Scrum", "Microservices", "API", "CI/CD", "Linux", "Unix", "Windows Server",
}

type skillPattern struct {
	name string
	re   *regexp.Regexp
}

var skillPatterns = compileSkillPatterns()

func compileSkillPatterns() []skillPattern {
	patterns := make([]skillPattern, 0, len(skillVocabulary))
	for _, skill := range skillVocabulary {
		patterns = append(patterns, skillPattern{name: skill, re: skillRegexp(skill)})
	}
	return patterns
}

// skillRegexp builds a case-insensitive word-boundary pattern for a token.
// \b only works against word characters, so tokens that start or end with
// punctuation ("C++", ".NET Core") drop the boundary on that side.
func skillRegexp(skill string) *regexp.Regexp {
	pattern := regexp.QuoteMeta(skill)
	if isWordChar(skill[0]) {
		pattern = `\b` + pattern
	}
	if isWordChar(skill[len(skill)-1]) {
		pattern += `\b`
	}
	return regexp.MustCompile(`(?i)` + pattern)
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// ExtractSkills matches the vocabulary against the text. The result is
// deduplicated and ordered by vocabulary position, not by position in the text.
func ExtractSkills(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var skills []string
	for _, p := range skillPatterns {
		if p.re.MatchString(text) {
			skills = append(skills, p.name)
		}
	}
	return skills
}
