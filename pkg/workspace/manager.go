package workspace

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/harun/mistalic/pkg/interpreter"
	"github.com/rs/zerolog"
)

// Config holds the dependencies of a Manager.
type Config struct {
	Store  kvstore.Store  // durable backing store (required)
	Logger zerolog.Logger
}

// Manager owns the file list, the active file pointer and the workspace
// preferences. Every mutation is written through to the store before it
// returns; a failed write leaves both memory and storage unchanged.
type Manager struct {
	persistence *Persistence
	emitter     *EventEmitter
	logger      zerolog.Logger

	mu       sync.RWMutex
	files    []FileRecord
	active   string
	settings EditorSettings
	theme    ThemeSettings
	keys     []APIKey
	env      map[string]string
}

// Open loads the workspace from cfg.Store.
func Open(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("workspace store is required")
	}

	logger := cfg.Logger.With().Str("component", "workspace").Logger()

	m := &Manager{
		persistence: NewPersistence(cfg.Store, logger),
		emitter:     NewEventEmitter(),
		logger:      logger,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	files, err := m.persistence.LoadFiles()
	if err != nil {
		return fmt.Errorf("failed to load files: %w", err)
	}
	settings, err := m.persistence.LoadEditorSettings()
	if err != nil {
		return fmt.Errorf("failed to load editor settings: %w", err)
	}
	theme, err := m.persistence.LoadTheme()
	if err != nil {
		return fmt.Errorf("failed to load theme: %w", err)
	}
	keys, err := m.persistence.LoadAPIKeys()
	if err != nil {
		return fmt.Errorf("failed to load api keys: %w", err)
	}
	env, err := m.persistence.LoadEnv()
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	m.files = files
	m.active = ""
	if len(files) > 0 {
		m.active = files[0].Path
	}
	m.settings = settings
	m.theme = theme
	m.keys = keys
	m.env = env

	m.logger.Info().
		Int("files", len(files)).
		Str("active", m.active).
		Msg("Workspace loaded")
	return nil
}

// On registers handler for event.
func (m *Manager) On(event Event, handler EventHandler) Unsubscribe {
	return m.emitter.On(event, handler)
}

// OnAny registers handler for every event.
func (m *Manager) OnAny(handler EventHandler) Unsubscribe {
	return m.emitter.OnAny(handler)
}

// Files returns a copy of the file list in display order.
func (m *Manager) Files() []FileRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]FileRecord, len(m.files))
	copy(out, m.files)
	return out
}

// File returns the file at path.
func (m *Manager) File(path string) (FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(path)
	if i < 0 {
		return FileRecord{}, fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	return m.files[i], nil
}

// Active returns the active file. ok is false when the workspace is empty.
func (m *Manager) Active() (FileRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(m.active)
	if i < 0 {
		return FileRecord{}, false
	}
	return m.files[i], true
}

// SetActive makes the file at path the active one.
func (m *Manager) SetActive(path string) (FileRecord, error) {
	m.mu.Lock()
	i := m.indexOf(path)
	if i < 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	changed := m.active != path
	m.active = path
	record := m.files[i]
	m.mu.Unlock()

	if changed {
		m.emitter.Emit(EventPayload{Event: EventActiveChanged, Path: path})
	}
	return record, nil
}

// Create adds a file and makes it active. An empty language is inferred
// from the name.
func (m *Manager) Create(name, content, language string) (FileRecord, error) {
	if err := validateName(name); err != nil {
		return FileRecord{}, err
	}
	if language == "" {
		language = InferLanguage(name)
	}
	record := FileRecord{
		Name:     name,
		Path:     PathFor(name),
		Content:  content,
		Language: language,
	}

	m.mu.Lock()
	if m.indexOf(record.Path) >= 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s already exists", ErrDuplicateName, name)
	}
	next := append(m.cloneFiles(), record)
	if err := m.commit(next, record.Path); err != nil {
		m.mu.Unlock()
		return FileRecord{}, err
	}
	m.mu.Unlock()

	m.logger.Debug().Str("path", record.Path).Str("language", language).Msg("File created")
	m.emitter.Emit(EventPayload{Event: EventFileCreated, Path: record.Path, Data: record})
	m.emitter.Emit(EventPayload{Event: EventActiveChanged, Path: record.Path})
	return record, nil
}

// Rename changes a file's name and path. The active pointer follows the
// file if it was active.
func (m *Manager) Rename(path, newName string) (FileRecord, error) {
	if err := validateName(newName); err != nil {
		return FileRecord{}, err
	}
	newPath := PathFor(newName)

	m.mu.Lock()
	i := m.indexOf(path)
	if i < 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	if newPath != path && m.indexOf(newPath) >= 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s already exists", ErrDuplicateName, newName)
	}

	next := m.cloneFiles()
	next[i].Name = newName
	next[i].Path = newPath
	active := m.active
	if active == path {
		active = newPath
	}
	if err := m.commit(next, active); err != nil {
		m.mu.Unlock()
		return FileRecord{}, err
	}
	record := next[i]
	m.mu.Unlock()

	m.logger.Debug().Str("from", path).Str("to", newPath).Msg("File renamed")
	m.emitter.Emit(EventPayload{Event: EventFileRenamed, Path: newPath, OldPath: path, Data: record})
	return record, nil
}

// Delete removes the file at path. Deleting the active file activates the
// first remaining file, or clears the pointer when none remain.
func (m *Manager) Delete(path string) error {
	m.mu.Lock()
	i := m.indexOf(path)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: file %s", ErrNotFound, path)
	}

	next := make([]FileRecord, 0, len(m.files)-1)
	next = append(next, m.files[:i]...)
	next = append(next, m.files[i+1:]...)

	active := m.active
	if active == path {
		active = ""
		if len(next) > 0 {
			active = next[0].Path
		}
	}
	activeChanged := active != m.active
	if err := m.commit(next, active); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.logger.Debug().Str("path", path).Msg("File deleted")
	m.emitter.Emit(EventPayload{Event: EventFileDeleted, Path: path})
	if activeChanged {
		m.emitter.Emit(EventPayload{Event: EventActiveChanged, Path: active})
	}
	return nil
}

// Update replaces the content of the file at path.
func (m *Manager) Update(path, content string) (FileRecord, error) {
	m.mu.Lock()
	i := m.indexOf(path)
	if i < 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s", ErrNotFound, path)
	}

	next := m.cloneFiles()
	next[i].Content = content
	if err := m.commit(next, m.active); err != nil {
		m.mu.Unlock()
		return FileRecord{}, err
	}
	record := next[i]
	m.mu.Unlock()

	m.emitter.Emit(EventPayload{Event: EventFileUpdated, Path: path, Data: record})
	return record, nil
}

// SaveResult reports the outcome of Save.
type SaveResult struct {
	File       FileRecord                   `json:"file"`
	Agent      *interpreter.AgentDefinition `json:"agent,omitempty"`
	AgentError string                       `json:"agentError,omitempty"`
}

// Save writes the file list again and, for script files, checks whether the
// file declares a valid agent. An agent that cannot be read never fails the
// save. An empty path saves the active file.
func (m *Manager) Save(path string) (SaveResult, error) {
	m.mu.Lock()
	if path == "" {
		path = m.active
	}
	i := m.indexOf(path)
	if i < 0 {
		m.mu.Unlock()
		return SaveResult{}, fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	if err := m.commit(m.cloneFiles(), m.active); err != nil {
		m.mu.Unlock()
		return SaveResult{}, err
	}
	result := SaveResult{File: m.files[i]}
	m.mu.Unlock()

	if strings.HasSuffix(result.File.Name, ".js") {
		agent, err := interpreter.ExtractAgent(result.File.Content)
		if err != nil {
			result.AgentError = err.Error()
			m.logger.Debug().Err(err).Str("path", path).Msg("No agent detected in saved file")
		} else {
			result.Agent = agent
			m.logger.Info().Str("path", path).Str("agent", agent.Name).Msg("Agent saved")
		}
	}

	m.emitter.Emit(EventPayload{Event: EventSaved, Path: path, Data: result})
	return result, nil
}

// Import adds a file from external content. JSON files are cleaned: a
// script declaring an object is converted to that object's JSON, and
// anything that is not valid JSON is rejected.
func (m *Manager) Import(name, content string) (FileRecord, error) {
	if !strings.HasSuffix(name, ".json") {
		return m.Create(name, content, "")
	}

	cleaned, err := interpreter.CleanJSON(content)
	if err != nil {
		return FileRecord{}, fmt.Errorf("invalid JSON file: %w", err)
	}
	return m.Create(name, cleaned, "json")
}

// Export formats.
const (
	FormatJSON = "json"
	FormatJS   = "js"
)

// ExportedFile is the downloadable form of a file.
type ExportedFile struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

// Export renders the file at path in format. JSON export extracts the
// declared object from scripts; JS export wraps JSON files in the agent
// code template. Other files are exported unchanged as JS.
func (m *Manager) Export(path, format string) (ExportedFile, error) {
	file, err := m.File(path)
	if err != nil {
		return ExportedFile{}, err
	}

	switch format {
	case FormatJSON:
		var data interface{}
		if isJSONFile(file) {
			data, err = interpreter.ParseJSON(file.Content)
		} else {
			data, err = interpreter.ExtractData(file.Content)
		}
		if err != nil {
			return ExportedFile{}, fmt.Errorf("could not convert to JSON: %w", err)
		}
		content, err := interpreter.MarshalPretty(data)
		if err != nil {
			return ExportedFile{}, err
		}
		return ExportedFile{
			Name:     replaceExt(file.Name, ".json"),
			Content:  content,
			MimeType: "application/json",
		}, nil

	case FormatJS:
		exported := ExportedFile{Name: file.Name, Content: file.Content, MimeType: "text/javascript"}
		if isJSONFile(file) {
			name, code, err := codeForm(file)
			if err != nil {
				return ExportedFile{}, err
			}
			exported.Name = name
			exported.Content = code
		}
		return exported, nil

	default:
		return ExportedFile{}, fmt.Errorf("%w: unsupported export format %q", ErrValidation, format)
	}
}

// ConvertToCode replaces a JSON file with its script form. The file keeps
// its position and gains a .js name and the javascript language. Only .json
// files can be converted.
func (m *Manager) ConvertToCode(path string) (FileRecord, error) {
	m.mu.Lock()
	i := m.indexOf(path)
	if i < 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	file := m.files[i]
	if !isJSONFile(file) {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: only .json files can be converted", ErrValidation)
	}
	name, code, err := codeForm(file)
	if err != nil {
		m.mu.Unlock()
		return FileRecord{}, err
	}
	newPath := PathFor(name)
	if newPath != path && m.indexOf(newPath) >= 0 {
		m.mu.Unlock()
		return FileRecord{}, fmt.Errorf("%w: file %s already exists", ErrDuplicateName, name)
	}

	next := m.cloneFiles()
	next[i] = FileRecord{
		Name:     name,
		Path:     newPath,
		Content:  code,
		Language: interpreter.CodeLanguage,
	}
	active := m.active
	if active == path {
		active = newPath
	}
	if err := m.commit(next, active); err != nil {
		m.mu.Unlock()
		return FileRecord{}, err
	}
	record := next[i]
	m.mu.Unlock()

	if newPath != path {
		m.emitter.Emit(EventPayload{Event: EventFileRenamed, Path: newPath, OldPath: path, Data: record})
	}
	m.emitter.Emit(EventPayload{Event: EventFileUpdated, Path: newPath, Data: record})
	return record, nil
}

// ExtractJSON returns the pretty JSON of the object declared in the file at
// path.
func (m *Manager) ExtractJSON(path string) (string, error) {
	file, err := m.File(path)
	if err != nil {
		return "", err
	}
	return interpreter.ExtractToJSON(file.Content)
}

// ExtractAgent reads the agent declared in the file at path.
func (m *Manager) ExtractAgent(path string) (*interpreter.AgentDefinition, error) {
	file, err := m.File(path)
	if err != nil {
		return nil, err
	}
	if isJSONFile(file) {
		data, err := interpreter.ParseJSON(file.Content)
		if err != nil {
			return nil, err
		}
		return interpreter.AgentFromData(data)
	}
	return interpreter.ExtractAgent(file.Content)
}

// commit persists next and then installs it. Callers hold m.mu.
func (m *Manager) commit(next []FileRecord, active string) error {
	if err := m.persistence.SaveFiles(next); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist files, change discarded")
		return err
	}
	m.files = next
	m.active = active
	return nil
}

func (m *Manager) indexOf(path string) int {
	if path == "" {
		return -1
	}
	for i, f := range m.files {
		if f.Path == path {
			return i
		}
	}
	return -1
}

func (m *Manager) cloneFiles() []FileRecord {
	out := make([]FileRecord, len(m.files), len(m.files)+1)
	copy(out, m.files)
	return out
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: file name must not contain '/'", ErrValidation)
	}
	return nil
}

func isJSONFile(file FileRecord) bool {
	return strings.HasSuffix(file.Name, ".json")
}

// codeForm renders a JSON file in the agent code template.
func codeForm(file FileRecord) (name, code string, err error) {
	data, err := interpreter.ParseJSON(file.Content)
	if err != nil {
		return "", "", fmt.Errorf("could not convert to JS: %w", err)
	}
	code, err = interpreter.JSONToCode(data)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSuffix(file.Name, ".json") + ".js", code, nil
}

var trailingExt = regexp.MustCompile(`\.\w+$`)

// replaceExt swaps a trailing word-character extension for ext. Names
// without one are returned unchanged.
func replaceExt(name, ext string) string {
	return trailingExt.ReplaceAllLiteralString(name, ext)
}
