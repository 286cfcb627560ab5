package cli

import (
	"context"
	"strings"
	"time"

	"github.com/harun/mistalic/internal/config"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// workspaceService is the workspace surface used by the CLI. *client.Client
// serves it over HTTP, localService directly from storage.
type workspaceService interface {
	ListFiles(ctx context.Context) ([]workspace.FileRecord, string, error)
	GetFile(ctx context.Context, path string) (workspace.FileRecord, error)
	CreateFile(ctx context.Context, name, content, language string) (workspace.FileRecord, error)
	UpdateFile(ctx context.Context, path, content string) (workspace.FileRecord, error)
	RenameFile(ctx context.Context, path, newName string) (workspace.FileRecord, error)
	DeleteFile(ctx context.Context, path string) error
	SetActive(ctx context.Context, path string) (workspace.FileRecord, error)
	SaveFile(ctx context.Context, path string) (workspace.SaveResult, error)
	ImportFile(ctx context.Context, name, content string) (workspace.FileRecord, error)
	ExportFile(ctx context.Context, path, format string) (workspace.ExportedFile, error)
	Search(ctx context.Context, query string) ([]workspace.FileMatch, error)

	EditorSettings(ctx context.Context) (workspace.EditorSettings, error)
	UpdateEditorSettings(ctx context.Context, settings workspace.EditorSettings) (workspace.EditorSettings, error)
	Theme(ctx context.Context) (workspace.ThemeSettings, error)
	UpdateTheme(ctx context.Context, theme workspace.ThemeSettings) (workspace.ThemeSettings, error)
	APIKeys(ctx context.Context) ([]workspace.APIKey, error)
	AddAPIKey(ctx context.Context, name, key, provider string) (workspace.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	Env(ctx context.Context) (map[string]string, error)
	SetEnv(ctx context.Context, key, value string) error
}

// localService adapts a workspace.Manager opened in-process.
type localService struct {
	ws *workspace.Manager
}

func (s *localService) ListFiles(ctx context.Context) ([]workspace.FileRecord, string, error) {
	active, _ := s.ws.Active()
	return s.ws.Files(), active.Path, nil
}

func (s *localService) GetFile(ctx context.Context, path string) (workspace.FileRecord, error) {
	return s.ws.File(path)
}

func (s *localService) CreateFile(ctx context.Context, name, content, language string) (workspace.FileRecord, error) {
	return s.ws.Create(name, content, language)
}

func (s *localService) UpdateFile(ctx context.Context, path, content string) (workspace.FileRecord, error) {
	return s.ws.Update(path, content)
}

func (s *localService) RenameFile(ctx context.Context, path, newName string) (workspace.FileRecord, error) {
	return s.ws.Rename(path, newName)
}

func (s *localService) DeleteFile(ctx context.Context, path string) error {
	return s.ws.Delete(path)
}

func (s *localService) SetActive(ctx context.Context, path string) (workspace.FileRecord, error) {
	return s.ws.SetActive(path)
}

func (s *localService) SaveFile(ctx context.Context, path string) (workspace.SaveResult, error) {
	return s.ws.Save(path)
}

func (s *localService) ImportFile(ctx context.Context, name, content string) (workspace.FileRecord, error) {
	return s.ws.Import(name, content)
}

func (s *localService) ExportFile(ctx context.Context, path, format string) (workspace.ExportedFile, error) {
	return s.ws.Export(path, format)
}

func (s *localService) Search(ctx context.Context, query string) ([]workspace.FileMatch, error) {
	return s.ws.Search(query), nil
}

func (s *localService) EditorSettings(ctx context.Context) (workspace.EditorSettings, error) {
	return s.ws.EditorSettings(), nil
}

func (s *localService) UpdateEditorSettings(ctx context.Context, settings workspace.EditorSettings) (workspace.EditorSettings, error) {
	return s.ws.UpdateEditorSettings(settings)
}

func (s *localService) Theme(ctx context.Context) (workspace.ThemeSettings, error) {
	return s.ws.Theme(), nil
}

func (s *localService) UpdateTheme(ctx context.Context, theme workspace.ThemeSettings) (workspace.ThemeSettings, error) {
	return s.ws.UpdateTheme(theme)
}

func (s *localService) APIKeys(ctx context.Context) ([]workspace.APIKey, error) {
	keys := s.ws.APIKeys()
	for i := range keys {
		keys[i] = keys[i].Masked()
	}
	return keys, nil
}

func (s *localService) AddAPIKey(ctx context.Context, name, key, provider string) (workspace.APIKey, error) {
	added, err := s.ws.AddAPIKey(name, key, provider)
	if err != nil {
		return workspace.APIKey{}, err
	}
	return added.Masked(), nil
}

func (s *localService) DeleteAPIKey(ctx context.Context, id string) error {
	return s.ws.DeleteAPIKey(id)
}

func (s *localService) Env(ctx context.Context) (map[string]string, error) {
	return s.ws.Env(), nil
}

func (s *localService) SetEnv(ctx context.Context, key, value string) error {
	return s.ws.SetEnv(key, value)
}

// cliLogger logs warnings and errors of in-process components to stderr.
func cliLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		if parsed, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsed
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// withWorkspace runs fn against the running server when there is one, and
// against the configured storage otherwise.
func withWorkspace(cmd *cobra.Command, fn func(ctx context.Context, svc workspaceService) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if remoteMode() {
		return fn(ctx, newClient(cfg))
	}

	store, ws, err := openWorkspace(cfg, cliLogger(cmd, cfg))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, &localService{ws: ws})
}

// normalizePath accepts "agent.js" as well as "/agent.js".
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return workspace.PathFor(path)
}
