package tools

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go/v3"

	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/types"
)

// Coach tool names.
const (
	SaveRunnerProfile  = "save_runner_profile"
	GetRunningEvents   = "get_running_events"
	CreateRunningEvent = "create_running_event"
)

const (
	dateLayout          = "2006-01-02"
	defaultEventsWindow = 30 * 24 * time.Hour
	defaultEventsLimit  = 20
)

// Coach implements the running-coach tools on top of the store.
type Coach struct {
	Profiles store.ProfileStore
	Events   store.EventStore
	// Now is the clock used for default date ranges.
	Now func() time.Time
}

// NewCoachRegistry returns a registry with the three coach tools.
func NewCoachRegistry(profiles store.ProfileStore, events store.EventStore) *Registry {
	c := &Coach{Profiles: profiles, Events: events, Now: time.Now}
	return c.Registry()
}

// Registry returns a registry bound to c.
func (c *Coach) Registry() *Registry {
	return NewRegistry(
		Tool{Definition: saveRunnerProfileDef, Handler: c.SaveRunnerProfile},
		Tool{Definition: getRunningEventsDef, Handler: c.GetRunningEvents},
		Tool{Definition: createRunningEventDef, Handler: c.CreateRunningEvent},
	)
}

func (c *Coach) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// SaveRunnerProfile writes the recognized profile fields in args. Unknown
// keys are ignored and additionalInfo is merged into the stored map.
func (c *Coach) SaveRunnerProfile(ctx context.Context, args map[string]any) Outcome {
	upd := ProfileUpdateFromArgs(args)
	if upd.Empty() {
		return Outcome{
			Result: Result{Success: true, Message: "No hay datos para actualizar"},
			Notify: map[string]any{"profileSaved": false, "savedFields": []string{}},
		}
	}

	if _, err := c.Profiles.UpsertRunnerProfile(ctx, upd); err != nil {
		slog.Error("tool.save_runner_profile.failed", "error", err)
		return Outcome{
			Result: Failure("Error al guardar el perfil"),
			Notify: map[string]any{"profileSaved": false},
		}
	}

	fields := upd.FieldNames()
	return Outcome{
		Result: Result{
			Success: true,
			Message: "Perfil actualizado correctamente",
			Payload: map[string]any{"savedFields": fields},
		},
		Notify: map[string]any{"profileSaved": true, "savedFields": fields},
	}
}

// ProfileUpdateFromArgs builds a profile update from loosely typed tool or
// request arguments. Numeric fields accept numeric strings; values that do
// not coerce are skipped.
func ProfileUpdateFromArgs(args map[string]any) store.ProfileUpdate {
	var upd store.ProfileUpdate
	for _, name := range store.StringFields {
		if v, ok := stringArg(args, name); ok {
			if upd.Strings == nil {
				upd.Strings = make(map[string]*string)
			}
			upd.Strings[name] = v
		}
	}
	for _, name := range store.NumberFields {
		v, ok := numberArg(args, name)
		if !ok {
			if _, present := args[name]; present {
				slog.Debug("tool.save_runner_profile.skip_field", "field", name, "value", args[name])
			}
			continue
		}
		if upd.Numbers == nil {
			upd.Numbers = make(map[string]*float64)
		}
		upd.Numbers[name] = v
	}
	if info, ok := args["additionalInfo"].(map[string]any); ok && len(info) > 0 {
		upd.MergeInfo = info
	}
	return upd
}

// GetRunningEvents lists calendar events in an inclusive date range
// (default today-30d..today+30d), at most limit rows (default 20), then
// keeps only the requested category.
func (c *Coach) GetRunningEvents(ctx context.Context, args map[string]any) Outcome {
	today := c.now()
	start := textArg(args, "startDate")
	if start == "" {
		start = today.Add(-defaultEventsWindow).Format(dateLayout)
	}
	end := textArg(args, "endDate")
	if end == "" {
		end = today.Add(defaultEventsWindow).Format(dateLayout)
	}
	category := textArg(args, "category")
	if category != store.CategoryRunning && category != store.CategoryPersonal {
		category = store.CategoryAll
	}
	limit := defaultEventsLimit
	if n, ok := types.IntFromAny(args["limit"]); ok && n > 0 {
		limit = n
	}

	events, err := c.Events.QueryEvents(ctx, store.EventQuery{StartDate: start, EndDate: end, Limit: limit})
	if err != nil {
		slog.Error("tool.get_running_events.failed", "error", err)
		return Outcome{Result: Failure("Error al obtener los eventos")}
	}

	filtered := make([]store.Event, 0, len(events))
	for _, ev := range events {
		if category == store.CategoryAll || ev.Category == category {
			filtered = append(filtered, ev)
		}
	}
	return Outcome{Result: Result{
		Success: true,
		Payload: map[string]any{
			"events": filtered,
			"count":  len(filtered),
		},
	}}
}

// CreateRunningEvent adds a calendar event. date and type are required;
// the event always starts not completed.
func (c *Coach) CreateRunningEvent(ctx context.Context, args map[string]any) Outcome {
	date := textArg(args, "date")
	typ := textArg(args, "type")
	if date == "" || typ == "" {
		return Outcome{Result: Failure("Faltan campos obligatorios: date y type")}
	}

	ev := EventFromArgs(args)
	ev.ID = ""
	ev.Completed = 0

	created, err := c.Events.CreateEvent(ctx, ev)
	if err != nil {
		slog.Error("tool.create_running_event.failed", "error", err)
		return Outcome{
			Result: Failure("Error al crear el evento"),
			Notify: map[string]any{"eventCreated": false},
		}
	}

	return Outcome{
		Result: Result{
			Success: true,
			Message: "Evento creado correctamente",
			Payload: map[string]any{"event": map[string]any{
				"id":       created.ID,
				"date":     created.Date,
				"type":     created.Type,
				"title":    created.Title,
				"category": created.Category,
			}},
		},
		Notify: map[string]any{"eventCreated": true},
	}
}

// EventFromArgs builds an event from loosely typed arguments. Category
// defaults to running; heartRate and completed accept numeric strings.
func EventFromArgs(args map[string]any) store.Event {
	ev := store.Event{
		ID:       textArg(args, "id"),
		Date:     textArg(args, "date"),
		Type:     textArg(args, "type"),
		Category: textArg(args, "category"),
		Title:    optionalText(args, "title"),
		Time:     optionalText(args, "time"),
		Distance: optionalText(args, "distance"),
		Duration: optionalText(args, "duration"),
		Pace:     optionalText(args, "pace"),
		Notes:    optionalText(args, "notes"),
		Feeling:  optionalText(args, "feeling"),
	}
	if ev.Category == "" {
		ev.Category = store.CategoryRunning
	}
	if hr, ok := types.IntFromAny(args["heartRate"]); ok && hr > 0 {
		ev.HeartRate = &hr
	}
	switch v := args["completed"].(type) {
	case bool:
		if v {
			ev.Completed = 1
		}
	default:
		if n, ok := types.IntFromAny(v); ok && n != 0 {
			ev.Completed = 1
		}
	}
	return ev
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func numberProp(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

var saveRunnerProfileDef = openai.FunctionDefinitionParam{
	Name:        SaveRunnerProfile,
	Description: openai.String("Guarda o actualiza información del perfil del corredor. Usa este tool cuando el usuario comparta datos personales, marcas, objetivos, lesiones, o cualquier información relevante sobre su perfil como corredor."),
	Parameters: openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"name":              stringProp("Nombre del corredor"),
			"age":               numberProp("Edad en años"),
			"weight":            numberProp("Peso en kg"),
			"height":            numberProp("Altura en cm"),
			"yearsRunning":      numberProp("Años de experiencia corriendo"),
			"weeklyKm":          numberProp("Kilómetros semanales habituales"),
			"pb5k":              stringProp("Marca personal 5K (formato MM:SS)"),
			"pb10k":             stringProp("Marca personal 10K"),
			"pbHalfMarathon":    stringProp("Marca personal media maratón"),
			"pbMarathon":        stringProp("Marca personal maratón"),
			"currentGoal":       stringProp("Objetivo actual del corredor"),
			"targetRace":        stringProp("Carrera objetivo"),
			"targetDate":        stringProp("Fecha de la carrera objetivo (YYYY-MM-DD)"),
			"targetTime":        stringProp("Tiempo objetivo para la carrera"),
			"injuries":          stringProp("Lesiones pasadas o actuales"),
			"healthNotes":       stringProp("Notas de salud relevantes"),
			"preferredTerrain":  stringProp("Terreno preferido (asfalto, trail, mixto)"),
			"availableDays":     stringProp("Días disponibles para entrenar"),
			"maxTimePerSession": numberProp("Tiempo máximo por sesión en minutos"),
			"coachNotes":        stringProp("Notas importantes sobre el corredor"),
			"additionalInfo": map[string]any{
				"type":                 "object",
				"description":          "Información adicional que no encaja en otros campos (zapatillas, equipamiento, rutinas, etc.)",
				"additionalProperties": true,
			},
		},
		"required": []string{},
	},
}

var getRunningEventsDef = openai.FunctionDefinitionParam{
	Name:        GetRunningEvents,
	Description: openai.String("Consulta los eventos del calendario del corredor (entrenamientos, carreras y eventos personales) en un rango de fechas. Úsalo antes de planificar para conocer la carga y los compromisos existentes."),
	Parameters: openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"startDate": stringProp("Fecha inicial inclusiva (YYYY-MM-DD). Por defecto hace 30 días"),
			"endDate":   stringProp("Fecha final inclusiva (YYYY-MM-DD). Por defecto dentro de 30 días"),
			"category": map[string]any{
				"type":        "string",
				"enum":        []string{store.CategoryRunning, store.CategoryPersonal, store.CategoryAll},
				"description": "Categoría de eventos a devolver. Por defecto all",
			},
			"limit": numberProp("Número máximo de eventos. Por defecto 20"),
		},
		"required": []string{},
	},
}

var createRunningEventDef = openai.FunctionDefinitionParam{
	Name:        CreateRunningEvent,
	Description: openai.String("Crea un evento en el calendario del corredor: un entrenamiento, una carrera o un compromiso personal."),
	Parameters: openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"date": stringProp("Fecha del evento (YYYY-MM-DD)"),
			"type": stringProp("Tipo de evento (rodaje, series, tirada larga, carrera, descanso, médico...)"),
			"category": map[string]any{
				"type":        "string",
				"enum":        []string{store.CategoryRunning, store.CategoryPersonal},
				"description": "running para entrenamientos y carreras, personal para otros compromisos. Por defecto running",
			},
			"title":     stringProp("Título corto del evento"),
			"time":      stringProp("Hora (HH:MM)"),
			"distance":  stringProp("Distancia prevista, p. ej. 10 km"),
			"duration":  stringProp("Duración prevista, p. ej. 50 min"),
			"pace":      stringProp("Ritmo objetivo, p. ej. 5:00/km"),
			"notes":     stringProp("Notas adicionales"),
			"heartRate": numberProp("Frecuencia cardiaca media objetivo o registrada"),
			"feeling":   stringProp("Sensaciones"),
		},
		"required": []string{"date", "type"},
	},
}
