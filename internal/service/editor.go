// editor.go — сервис сессий редактора.
//
// Сессия — состояние одного экрана дашборда: значения полей формы,
// подготовленные медиа-файлы и превью. Сессии живут только в памяти
// этого процесса, не разделяются между пользователями и не переживают
// рестарт. Неактивные сессии убираются фоновым reaper'ом: уход
// со страницы без отправки означает потерю черновика.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/cmsclient"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/model"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/schema"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/encode"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/form"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/media"
)

// ContentClient — операции content API, нужные редактору.
// Реализуется cmsclient.Client; в тестах подменяется моком.
type ContentClient interface {
	Get(ctx context.Context, apiPath, id, token string) (map[string]any, error)
	Create(ctx context.Context, apiPath string, payload *encode.Payload, token string) (map[string]any, error)
	Update(ctx context.Context, apiPath, id string, payload *encode.Payload, token string) (map[string]any, error)
	Delete(ctx context.Context, apiPath, id, token string) error
}

// AuditRecorder — фиксация попыток отправки.
// Реализуется AuditService; может быть nil (аудит выключен).
type AuditRecorder interface {
	Record(ctx context.Context, resource, recordID, action, actor, outcome, message string)
}

// session — состояние одного экрана редактора.
type session struct {
	id       string
	resource *schema.Resource
	recordID string // пустой — режим создания
	record   *form.Record
	picker   *media.Picker

	mu         sync.Mutex
	submitting bool
	lastActive time.Time
}

// touch обновляет отметку активности.
func (s *session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// MediaState — состояние слота медиа для отображения.
type MediaState struct {
	// Staged — в слоте подготовлен новый файл.
	Staged bool `json:"staged"`
	// Filename — имя подготовленного файла.
	Filename string `json:"filename,omitempty"`
	// Preview — data-URL превью подготовленного файла (появляется асинхронно).
	Preview string `json:"preview,omitempty"`
	// StoredURL — URL ранее сохранённого медиа (режим редактирования).
	StoredURL string `json:"stored_url,omitempty"`
	// Cleared — пользователь пометил сохранённое медиа к удалению.
	Cleared bool `json:"cleared"`
}

// Snapshot — срез состояния сессии для клиента дашборда.
type Snapshot struct {
	SessionID string                `json:"session_id"`
	Resource  string                `json:"resource"`
	RecordID  string                `json:"record_id,omitempty"`
	Editing   bool                  `json:"editing"`
	Values    map[string]string     `json:"values"`
	Media     map[string]MediaState `json:"media"`
	Missing   []string              `json:"missing"`
	CanSubmit bool                  `json:"can_submit"`
}

// SubmitResult — результат успешной отправки.
type SubmitResult struct {
	// Action — выполненное действие (create или update).
	Action string `json:"action"`
	// Record — запись, возвращённая платформой.
	Record map[string]any `json:"record"`
}

// EditorService — сервис сессий редактора.
type EditorService struct {
	cms    ContentClient
	audit  AuditRecorder
	logger *slog.Logger

	ttl          time.Duration
	reapInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*session

	// Управление фоновым reaper'ом
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEditorService создаёт сервис сессий редактора.
// ttl — время жизни неактивной сессии, reapInterval — интервал уборки.
func NewEditorService(
	cms ContentClient,
	audit AuditRecorder,
	ttl time.Duration,
	reapInterval time.Duration,
	logger *slog.Logger,
) *EditorService {
	return &EditorService{
		cms:          cms,
		audit:        audit,
		logger:       logger.With(slog.String("component", "editor_service")),
		ttl:          ttl,
		reapInterval: reapInterval,
		sessions:     make(map[string]*session),
	}
}

// OpenCreate открывает сессию создания новой записи.
// Поля формы получают значения по умолчанию из схемы коллекции.
func (e *EditorService) OpenCreate(resourceName string) (*Snapshot, error) {
	res, ok := schema.Get(resourceName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resourceName)
	}

	s := &session{
		id:         uuid.New().String(),
		resource:   res,
		record:     form.New(res),
		picker:     media.NewPicker(),
		lastActive: time.Now(),
	}

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	e.logger.Info("Открыта сессия создания",
		slog.String("session_id", s.id),
		slog.String("resource", resourceName),
	)

	return e.snapshot(s), nil
}

// OpenEdit открывает сессию редактирования существующей записи.
// Запись запрашивается у content API и нормализуется в значения формы.
func (e *EditorService) OpenEdit(ctx context.Context, resourceName, recordID, token string) (*Snapshot, error) {
	res, ok := schema.Get(resourceName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resourceName)
	}

	data, err := e.cms.Get(ctx, res.APIPath, recordID, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, upstreamMessage(err))
	}

	s := &session{
		id:         uuid.New().String(),
		resource:   res,
		recordID:   recordID,
		record:     form.FromServer(res, data),
		picker:     media.NewPicker(),
		lastActive: time.Now(),
	}

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	e.logger.Info("Открыта сессия редактирования",
		slog.String("session_id", s.id),
		slog.String("resource", resourceName),
		slog.String("record_id", recordID),
	)

	return e.snapshot(s), nil
}

// get возвращает сессию по ID.
func (e *EditorService) get(sessionID string) (*session, error) {
	e.mu.RLock()
	s, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// SetFields применяет изменения полей формы.
// Ошибка на любом поле прерывает применение: значения остальных
// полей остаются прежними, сессия не портится частичным вводом.
func (e *EditorService) SetFields(sessionID string, fields map[string]string) (*Snapshot, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch()

	for name, value := range fields {
		if err := s.record.Set(name, value); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
	}

	return e.snapshot(s), nil
}

// StageMedia подготавливает файл в слот медиа.
// Ошибка валидации возвращается как ErrValidation: файл отклонён,
// предыдущее содержимое слота не тронуто.
func (e *EditorService) StageMedia(sessionID, slot, filename, contentType string, size int64, r io.Reader) (*Snapshot, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch()

	slotDef, ok := s.resource.Slot(slot)
	if !ok {
		return nil, fmt.Errorf("%w: неизвестный слот медиа %q", ErrValidation, slot)
	}

	if _, err := s.picker.Stage(slotDef, filename, contentType, size, r); err != nil {
		var ve *media.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, ve.Error())
		}
		return nil, err
	}

	e.logger.Debug("Файл подготовлен в слот",
		slog.String("session_id", sessionID),
		slog.String("slot", slot),
		slog.String("filename", filename),
	)

	return e.snapshot(s), nil
}

// ResetMedia сбрасывает слот медиа к исходному состоянию:
// подготовленный файл и превью отбрасываются, сохранённое на
// платформе медиа остаётся.
func (e *EditorService) ResetMedia(sessionID, slot string) (*Snapshot, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch()

	if _, ok := s.resource.Slot(slot); !ok {
		return nil, fmt.Errorf("%w: неизвестный слот медиа %q", ErrValidation, slot)
	}
	s.picker.Reset(slot)
	return e.snapshot(s), nil
}

// ClearMedia помечает сохранённое медиа слота к удалению при отправке.
// Подготовленный файл, если был, также отбрасывается.
func (e *EditorService) ClearMedia(sessionID, slot string) (*Snapshot, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch()

	if _, ok := s.resource.Slot(slot); !ok {
		return nil, fmt.Errorf("%w: неизвестный слот медиа %q", ErrValidation, slot)
	}
	s.picker.Clear(slot)
	return e.snapshot(s), nil
}

// GetSnapshot возвращает текущее состояние сессии.
func (e *EditorService) GetSnapshot(sessionID string) (*Snapshot, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch()
	return e.snapshot(s), nil
}

// Discard удаляет сессию. Подготовленные файлы и изменения теряются.
func (e *EditorService) Discard(sessionID string) error {
	e.mu.Lock()
	_, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	e.logger.Info("Сессия отброшена", slog.String("session_id", sessionID))
	return nil
}

// Submit кодирует форму и отправляет её в content API.
// Повторный вызов во время выполняющейся отправки возвращает
// ErrSubmitInFlight. При успехе сессия удаляется; при провале
// остаётся нетронутой — пользователь правит и отправляет снова.
func (e *EditorService) Submit(ctx context.Context, sessionID, token, actor string) (*SubmitResult, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}

	// Single-flight: флаг отправки под мьютексом сессии.
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.submitting = true
	s.lastActive = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	editing := s.recordID != ""

	// Проверка готовности до каких-либо сетевых операций.
	missing := s.record.MissingFields(s.picker, !editing)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: не заполнены поля: %s", ErrNotReady, strings.Join(missing, ", "))
	}

	payload, err := encode.Submission(s.record, s.picker, editing)
	if err != nil {
		if errors.Is(err, encode.ErrNoMediaKind) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		return nil, err
	}

	action := model.ActionCreate
	if editing {
		action = model.ActionUpdate
	}

	var record map[string]any
	if editing {
		record, err = e.cms.Update(ctx, s.resource.APIPath, s.recordID, payload, token)
	} else {
		record, err = e.cms.Create(ctx, s.resource.APIPath, payload, token)
	}

	if err != nil {
		msg := upstreamMessage(err)
		e.recordAudit(ctx, s.resource.Name, s.recordID, action, actor, model.OutcomeFailure, msg)
		e.logger.Warn("Отправка не удалась",
			slog.String("session_id", sessionID),
			slog.String("resource", s.resource.Name),
			slog.String("action", action),
			slog.String("error", msg),
		)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	recordID := s.recordID
	if recordID == "" {
		recordID = recordIDFrom(record)
	}
	e.recordAudit(ctx, s.resource.Name, recordID, action, actor, model.OutcomeSuccess, "")

	// Успех — сессия больше не нужна.
	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	e.logger.Info("Отправка выполнена",
		slog.String("session_id", sessionID),
		slog.String("resource", s.resource.Name),
		slog.String("action", action),
		slog.String("record_id", recordID),
	)

	return &SubmitResult{Action: action, Record: record}, nil
}

// DeleteRecord удаляет запись коллекции на платформе.
// Сессии не требует: удаление выполняется со списочного экрана.
func (e *EditorService) DeleteRecord(ctx context.Context, resourceName, recordID, token, actor string) error {
	res, ok := schema.Get(resourceName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, resourceName)
	}

	if err := e.cms.Delete(ctx, res.APIPath, recordID, token); err != nil {
		msg := upstreamMessage(err)
		e.recordAudit(ctx, resourceName, recordID, model.ActionDelete, actor, model.OutcomeFailure, msg)
		return fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	e.recordAudit(ctx, resourceName, recordID, model.ActionDelete, actor, model.OutcomeSuccess, "")
	e.logger.Info("Запись удалена",
		slog.String("resource", resourceName),
		slog.String("record_id", recordID),
	)
	return nil
}

// snapshot строит срез состояния сессии.
func (e *EditorService) snapshot(s *session) *Snapshot {
	mediaStates := make(map[string]MediaState, len(s.resource.Slots))
	for _, slot := range s.resource.Slots {
		state := MediaState{
			Staged:  s.picker.Staged(slot.Name),
			Cleared: s.picker.Cleared(slot.Name),
		}
		if f := s.picker.File(slot.Name); f != nil {
			state.Filename = f.Filename
		}
		state.Preview = s.picker.Preview(slot.Name)
		if stored := s.record.StoredRef(slot.Name); stored != "" && !state.Cleared {
			state.StoredURL = cmsclient.ResolveMediaURL(stored)
		}
		mediaStates[slot.Name] = state
	}

	editing := s.recordID != ""
	missing := s.record.MissingFields(s.picker, !editing)

	return &Snapshot{
		SessionID: s.id,
		Resource:  s.resource.Name,
		RecordID:  s.recordID,
		Editing:   editing,
		Values:    s.record.Values(),
		Media:     mediaStates,
		Missing:   missing,
		CanSubmit: len(missing) == 0,
	}
}

// recordAudit фиксирует попытку отправки, если аудит включён.
func (e *EditorService) recordAudit(ctx context.Context, resource, recordID, action, actor, outcome, message string) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, resource, recordID, action, actor, outcome, message)
}

// upstreamMessage возвращает пользовательское сообщение ошибки content API.
func upstreamMessage(err error) string {
	var ue *cmsclient.UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}

// recordIDFrom извлекает идентификатор записи из ответа платформы.
func recordIDFrom(record map[string]any) string {
	switch id := record["id"].(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return ""
	}
}

// --- Фоновая уборка сессий ---

// Start запускает фоновую уборку истёкших сессий.
func (e *EditorService) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)

		ticker := time.NewTicker(e.reapInterval)
		defer ticker.Stop()

		e.logger.Info("Уборка сессий запущена",
			slog.Duration("ttl", e.ttl),
			slog.Duration("interval", e.reapInterval),
		)

		for {
			select {
			case <-runCtx.Done():
				e.logger.Info("Уборка сессий остановлена")
				return
			case <-ticker.C:
				e.reap()
			}
		}
	}()
}

// Stop останавливает фоновую уборку и дожидается её завершения.
func (e *EditorService) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// reap удаляет сессии, неактивные дольше TTL.
// Сессии с выполняющейся отправкой не трогаем.
func (e *EditorService) reap() {
	cutoff := time.Now().Add(-e.ttl)

	e.mu.Lock()
	defer e.mu.Unlock()

	for id, s := range e.sessions {
		s.mu.Lock()
		expired := s.lastActive.Before(cutoff) && !s.submitting
		s.mu.Unlock()

		if expired {
			delete(e.sessions, id)
			e.logger.Info("Истёкшая сессия убрана", slog.String("session_id", id))
		}
	}
}

// SessionCount возвращает число активных сессий.
func (e *EditorService) SessionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}
