package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DatabaseConfig holds PostgreSQL connection settings for the
// repo_title_category metadata and the import history tables.
type DatabaseConfig struct {
	Host               string `koanf:"host"`
	Port               string `koanf:"port"`
	User               string `koanf:"user"`
	Password           string `koanf:"password"`
	Name               string `koanf:"name"`
	SSLMode            string `koanf:"sslmode"`
	MaxOpenConns       int    `koanf:"max_open_conns"`
	MaxIdleConns       int    `koanf:"max_idle_conns"`
	ConnMaxLifetimeSec int    `koanf:"conn_max_lifetime_sec"`
}

// GitHubConfig holds GitHub API access settings. Orgs lists every
// organization the importer walks; the fallback token is tried by
// operators when the primary bot token lacks push permission.
type GitHubConfig struct {
	Token         string   `koanf:"token"`
	FallbackToken string   `koanf:"fallback_token"`
	APIURL        string   `koanf:"api_url"`
	Orgs          []string `koanf:"orgs"`
}

// JiraConfig holds Jira API access settings. CertPath/KeyPath form an
// optional mutual-TLS client pair used against the production instance.
type JiraConfig struct {
	APIURL            string `koanf:"api_url"`
	Token             string `koanf:"token"`
	CertPath          string `koanf:"cert_path"`
	KeyPath           string `koanf:"key_path"`
	ProjectKey        string `koanf:"project_key"`
	IssueType         string `koanf:"issue_type"`
	DemandProjectKey  string `koanf:"demand_project_key"`
	DemandIssueTypeID string `koanf:"demand_issue_type_id"`
}

// GiteaConfig points at the Gitea contents API that serves the
// cloud-environments metadata (affected locations per public org).
type GiteaConfig struct {
	BaseURL      string `koanf:"base_url"`
	MetadataPath string `koanf:"metadata_path"`
}

// ImporterConfig tunes the import engine: which squads to pull
// repositories for, the idempotency label, and the API pacing delays.
type ImporterConfig struct {
	TargetSquads  []string `koanf:"target_squads"`
	ImportedLabel string   `koanf:"imported_label"`
	TemplatesDir  string   `koanf:"templates_dir"`
	CreateDelayMS int      `koanf:"create_delay_ms"`
	PageDelayMS   int      `koanf:"page_delay_ms"`
	RepoDelayMS   int      `koanf:"repo_delay_ms"`
	LabelDelayMS  int      `koanf:"label_delay_ms"`
}

// FieldConfig carries the Jira custom field identifiers, the option IDs
// behind them, and the repository to master-component map. All of these
// are deployment facts injected from Vault rather than code constants.
type FieldConfig struct {
	MasterComponent   string            `koanf:"master_component"`
	UsersImpact       string            `koanf:"users_impact"`
	AffectedLocations string            `koanf:"affected_locations"`
	TestCategory      string            `koanf:"test_category"`
	BugType           string            `koanf:"bug_type"`
	AffectedAreas     string            `koanf:"affected_areas"`
	EstimatedEffort   string            `koanf:"estimated_effort"`
	Tier              string            `koanf:"tier"`
	PaysInto          string            `koanf:"pays_into"`
	TestCategoryIDs   map[string]string `koanf:"test_category_ids"`
	Components        map[string]string `koanf:"components"`
	// DefaultComponent is used by the demand profile when a repository
	// has no entry in Components.
	DefaultComponent string `koanf:"default_component"`
}

// MinIOConfig holds object storage settings for run snapshots.
type MinIOConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// AppConfig is the centralized configuration struct for the application.
// Values come from defaults, an optional giji.yaml overlay, and finally
// environment variables; the environment always wins because production
// injects secrets and field IDs through Vault.
type AppConfig struct {
	AppHost  string         `koanf:"app_host"`
	Port     string         `koanf:"port"`
	LogLevel string         `koanf:"log_level"`
	Database DatabaseConfig `koanf:"database"`
	GitHub   GitHubConfig   `koanf:"github"`
	Jira     JiraConfig     `koanf:"jira"`
	Gitea    GiteaConfig    `koanf:"gitea"`
	Importer ImporterConfig `koanf:"importer"`
	Fields   FieldConfig    `koanf:"fields"`
	MinIO    MinIOConfig    `koanf:"minio"`
}

// Need names a backend a command depends on; Validate checks only the
// settings the requested backends use, so help/version/health never
// demand credentials.
type Need string

const (
	NeedDatabase Need = "database"
	NeedGitHub   Need = "github"
	NeedJira     Need = "jira"
	NeedGitea    Need = "gitea"
)

// envComponents maps the Vault-injected abbreviation variables onto the
// repositories they configure master components for.
var envComponents = map[string]string{
	"DEH":       "dedicated-host",
	"ASG":       "auto-scaling",
	"ECS":       "elastic-cloud-server",
	"IMS":       "image-management-service",
	"BMS":       "bare-metal-server",
	"RDS":       "relational-database-service",
	"OPENGAUSS": "gaussdb-opengauss",
	"GEMINIDB":  "geminidb",
	"MYSQL":     "gaussdb-mysql",
	"DRS":       "data-replication-service",
	"DAS":       "data-admin-service",
	"DDM":       "distributed-database-middleware",
	"DDS":       "document-database-service",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"app_host":  "localhost:8080",
		"port":      "8080",
		"log_level": "info",
		// The database name has no default on purpose: Validate reports a
		// missing DB_CSV instead of silently connecting to a wrong database.
		"database": map[string]interface{}{
			"port":                  "5432",
			"sslmode":               "disable",
			"max_open_conns":        10,
			"max_idle_conns":        5,
			"conn_max_lifetime_sec": 300,
		},
		"github": map[string]interface{}{
			"api_url": "https://api.github.com",
			"orgs":    []string{"opentelekomcloud-docs"},
		},
		"jira": map[string]interface{}{
			"api_url":              "https://jira.tsi-dev.otc-service.com",
			"project_key":          "BM",
			"issue_type":           "Bug",
			"demand_project_key":   "OTCPR",
			"demand_issue_type_id": "11001",
		},
		"gitea": map[string]interface{}{
			"metadata_path": "repos/infra/otc-metadata-rework/contents/otc_metadata/data/cloud_environments",
		},
		"importer": map[string]interface{}{
			"target_squads":   []string{"Database Squad", "Compute Squad"},
			"imported_label":  "imported-to-jira",
			"templates_dir":   "config/templates",
			"create_delay_ms": 500,
			"page_delay_ms":   100,
			"repo_delay_ms":   2000,
			"label_delay_ms":  300,
		},
		"fields": map[string]interface{}{
			"master_component":   "customfield_17001",
			"users_impact":       "customfield_24700",
			"affected_locations": "customfield_10244",
			"test_category":      "customfield_20100",
			"bug_type":           "customfield_20101",
			"affected_areas":     "customfield_10218",
			"estimated_effort":   "customfield_15700",
			"tier":               "customfield_15237",
			"pays_into":          "customfield_16000",
			"test_category_ids": map[string]interface{}{
				"QA":       "17600",
				"UAT":      "17601",
				"Security": "17602",
			},
			"default_component": "OCH-1027707",
			"components": map[string]interface{}{
				"dedicated-host":                  "OCH-1027707",
				"auto-scaling":                    "OCH-1027753",
				"elastic-cloud-server":            "OCH-1027712",
				"image-management-service":        "OCH-1568488",
				"bare-metal-server":               "OCH-1027668",
				"relational-database-service":     "OCH-1027734",
				"gaussdb-opengauss":               "OCH-1027718",
				"geminidb":                        "OCH-1027721",
				"taurusdb":                        "OCH-2336898",
				"gaussdb-mysql":                   "OCH-2332896",
				"data-replication-service":        "OCH-1027709",
				"data-admin-service":              "OCH-1027698",
				"distributed-database-middleware": "OCH-1278335",
				"document-database-service":       "OCH-1027703",
			},
		},
		"minio": map[string]interface{}{
			"bucket": "giji-snapshots",
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file
// (explicit path, else ./giji.yaml or ./giji.yml), then environment
// variable overrides. A .env file can be auto-loaded by importing
// _ "github.com/joho/godotenv/autoload"; real environment variables
// take precedence over it.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	cfgFile := findConfigFile(path)
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// findConfigFile resolves the config file to use: an explicit path wins,
// otherwise giji.yaml / giji.yml in the working directory, otherwise none.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"giji.yaml", "giji.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// applyEnv overlays environment variables onto cfg. The variable names
// are the deployment's contract (Vault templates), which predates the
// YAML file support, so they keep their historical bare names.
func applyEnv(cfg *AppConfig) {
	cfg.AppHost = getEnv("APP_HOST", cfg.AppHost)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	// DB_CSV is the historical name for the metadata database; DB_NAME is
	// accepted as the modern spelling.
	cfg.Database.Name = firstEnv(cfg.Database.Name, "DB_CSV", "DB_NAME")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetimeSec = getEnvInt("DB_CONN_MAX_LIFETIME_SEC", cfg.Database.ConnMaxLifetimeSec)

	cfg.GitHub.Token = firstEnv(cfg.GitHub.Token, "GITHUB_TOKEN", "GITHUB_BOT_TOKEN")
	cfg.GitHub.FallbackToken = getEnv("GITHUB_FALLBACK_TOKEN", cfg.GitHub.FallbackToken)
	cfg.GitHub.APIURL = getEnv("GITHUB_API_URL", cfg.GitHub.APIURL)
	if orgs := firstEnv("", "GITHUB_ORGS", "GITHUB_ORG"); orgs != "" {
		cfg.GitHub.Orgs = splitCSV(orgs)
	}

	cfg.Jira.Token = firstEnv(cfg.Jira.Token, "JIRA_TOKEN", "JIRA_BOT_TOKEN")
	cfg.Jira.APIURL = firstEnv(cfg.Jira.APIURL, "JIRA_API_URL", "JIRA_URL")
	cfg.Jira.CertPath = getEnv("JIRA_CERT_PATH", cfg.Jira.CertPath)
	cfg.Jira.KeyPath = getEnv("JIRA_KEY_PATH", cfg.Jira.KeyPath)
	cfg.Jira.ProjectKey = getEnv("JIRA_PROJECT_KEY", cfg.Jira.ProjectKey)
	cfg.Jira.IssueType = getEnv("JIRA_ISSUE_TYPE", cfg.Jira.IssueType)
	cfg.Jira.DemandProjectKey = getEnv("JIRA_PROJECT_KEY_DEMAND", cfg.Jira.DemandProjectKey)
	cfg.Jira.DemandIssueTypeID = getEnv("JIRA_ISSUE_TYPE_ID_DEMAND", cfg.Jira.DemandIssueTypeID)

	cfg.Gitea.BaseURL = getEnv("BASE_GITEA_URL", cfg.Gitea.BaseURL)
	cfg.Gitea.MetadataPath = getEnv("GITEA_METADATA_PATH", cfg.Gitea.MetadataPath)

	if squads := os.Getenv("TARGET_SQUADS"); squads != "" {
		cfg.Importer.TargetSquads = splitCSV(squads)
	}
	cfg.Importer.ImportedLabel = getEnv("IMPORTED_LABEL", cfg.Importer.ImportedLabel)
	cfg.Importer.TemplatesDir = getEnv("TEMPLATES_DIR", cfg.Importer.TemplatesDir)

	cfg.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", cfg.MinIO.Endpoint)
	cfg.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.MinIO.AccessKey)
	cfg.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.MinIO.SecretKey)
	cfg.MinIO.Bucket = getEnv("MINIO_BUCKET", cfg.MinIO.Bucket)
	cfg.MinIO.UseSSL = getEnvBool("MINIO_USE_SSL", cfg.MinIO.UseSSL)

	applyFieldEnv(&cfg.Fields)
}

// applyFieldEnv overlays the Vault-shaped field ID variables. The
// lowercase names mirror the Vault template keys exactly.
func applyFieldEnv(f *FieldConfig) {
	f.MasterComponent = getEnv("master_component", f.MasterComponent)
	f.UsersImpact = getEnv("users_impact", f.UsersImpact)
	f.AffectedLocations = getEnv("affected_locations", f.AffectedLocations)
	f.TestCategory = getEnv("test_category", f.TestCategory)
	f.BugType = getEnv("bug_type", f.BugType)
	f.AffectedAreas = getEnv("affected_areas", f.AffectedAreas)
	f.EstimatedEffort = getEnv("estimated_effort", f.EstimatedEffort)
	f.Tier = getEnv("tier", f.Tier)
	f.PaysInto = getEnv("pays_into", f.PaysInto)
	f.DefaultComponent = getEnv("default_component", f.DefaultComponent)

	if f.TestCategoryIDs == nil {
		f.TestCategoryIDs = map[string]string{}
	}
	f.TestCategoryIDs["QA"] = getEnv("QA", f.TestCategoryIDs["QA"])
	f.TestCategoryIDs["UAT"] = getEnv("UAT", f.TestCategoryIDs["UAT"])
	f.TestCategoryIDs["Security"] = getEnv("SEC", f.TestCategoryIDs["Security"])

	if f.Components == nil {
		f.Components = map[string]string{}
	}
	for envName, repo := range envComponents {
		if v := os.Getenv(envName); v != "" {
			f.Components[repo] = v
		}
	}
}

// Validate checks the settings required by the requested backends and
// reports every missing variable in a single error.
func (c *AppConfig) Validate(needs ...Need) error {
	var missing []string
	var errs []error

	for _, n := range needs {
		switch n {
		case NeedDatabase:
			if c.Database.Host == "" {
				missing = append(missing, "DB_HOST")
			}
			if c.Database.User == "" {
				missing = append(missing, "DB_USER")
			}
			if c.Database.Password == "" {
				missing = append(missing, "DB_PASSWORD")
			}
			if c.Database.Name == "" {
				missing = append(missing, "DB_CSV")
			}
		case NeedGitHub:
			if c.GitHub.Token == "" {
				missing = append(missing, "GITHUB_TOKEN")
			}
			if c.GitHub.APIURL == "" {
				missing = append(missing, "GITHUB_API_URL")
			}
			if len(c.GitHub.Orgs) == 0 {
				missing = append(missing, "GITHUB_ORGS")
			}
		case NeedJira:
			if c.Jira.Token == "" {
				missing = append(missing, "JIRA_TOKEN")
			}
			if c.Jira.APIURL == "" {
				missing = append(missing, "JIRA_API_URL")
			}
			if (c.Jira.CertPath == "") != (c.Jira.KeyPath == "") {
				errs = append(errs, errors.New("JIRA_CERT_PATH and JIRA_KEY_PATH must be set together"))
			}
		case NeedGitea:
			if c.Gitea.BaseURL == "" {
				missing = append(missing, "BASE_GITEA_URL")
			}
		}
	}

	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	return errors.Join(errs...)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// firstEnv returns the first non-empty value among the named variables,
// falling back to def. Used where a variable has a legacy alias.
func firstEnv(def string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
