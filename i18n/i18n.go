// Package i18n holds the response message catalog shared by both services.
// Spanish is the default language; English is selected from Accept-Language.
package i18n

import (
	"context"
	"fmt"
	"strings"
)

const (
	LangES = "es"
	LangEN = "en"

	// DefaultLang is used when no supported language is requested.
	DefaultLang = LangES
)

type ctxKey string

const langCtxKey = ctxKey("lang")

var catalog = map[string]map[string]string{
	LangES: {
		"token_required":       "Token requerido",
		"token_missing":        "Token no proporcionado",
		"token_expired":        "Token expirado",
		"token_invalid":        "Token inválido",
		"route_not_found":      "Ruta no encontrada",
		"method_not_allowed":   "Método no permitido",
		"internal_error":       "Error interno del servidor",
		"invalid_json":         "JSON inválido",
		"field_required":       "Campo requerido: %s",
		"field_invalid":        "Valor inválido para %s",
		"date_invalid":         "Formato de fecha inválido: %s",
		"items_non_empty":      "items debe ser una lista no vacía",
		"item_invalid":         "Item inválido en la posición %d",
		"invoice_status_bad":   "Estado inválido. Debe ser: pendiente, pagada, cancelada",
		"invoice_not_found":    "Factura no encontrada",
		"invoice_listed":       "Facturas obtenidas correctamente",
		"invoice_created":      "Factura creada exitosamente",
		"invoice_updated":      "Factura actualizada exitosamente",
		"invoice_deleted":      "Factura eliminada exitosamente",
		"invoice_paid":         "Factura marcada como pagada",
		"invoice_summary":      "Resumen de facturación generado",
		"invoices_health":      "Microservicio de Facturación funcionando",
		"workorder_not_found":  "Orden de trabajo no encontrada",
		"workorder_listed":     "Órdenes de trabajo obtenidas correctamente",
		"workorder_created":    "Orden de trabajo creada exitosamente",
		"workorder_updated":    "Orden de trabajo actualizada exitosamente",
		"workorder_deleted":    "Orden de trabajo eliminada exitosamente",
		"workorder_summary":    "Resumen de órdenes generado",
		"workorders_health":    "Microservicio de Órdenes de Trabajo funcionando",
		"technician_required":  "tecnico_asignado es requerido",
		"technician_assigned":  "Técnico asignado exitosamente",
		"status_invalid":       "Estado inválido. Debe ser: pendiente, en_progreso, completada, cancelada",
		"priority_invalid":     "Prioridad inválida. Debe ser: baja, media, alta",
		"status_updated":       "Estado actualizado a %s",
		"description_required": "descripcion es requerida",
		"task_added":           "Tarea agregada exitosamente",
	},
	LangEN: {
		"token_required":       "Token required",
		"token_missing":        "Token not provided",
		"token_expired":        "Token expired",
		"token_invalid":        "Invalid token",
		"route_not_found":      "Route not found",
		"method_not_allowed":   "Method not allowed",
		"internal_error":       "Internal server error",
		"invalid_json":         "Invalid JSON",
		"field_required":       "Required field: %s",
		"field_invalid":        "Invalid value for %s",
		"date_invalid":         "Invalid date format: %s",
		"items_non_empty":      "items must be a non-empty list",
		"item_invalid":         "Invalid item at position %d",
		"invoice_status_bad":   "Invalid status. Must be one of: pendiente, pagada, cancelada",
		"invoice_not_found":    "Invoice not found",
		"invoice_listed":       "Invoices retrieved",
		"invoice_created":      "Invoice created",
		"invoice_updated":      "Invoice updated",
		"invoice_deleted":      "Invoice deleted",
		"invoice_paid":         "Invoice marked as paid",
		"invoice_summary":      "Billing summary generated",
		"invoices_health":      "Billing service up",
		"workorder_not_found":  "Work order not found",
		"workorder_listed":     "Work orders retrieved",
		"workorder_created":    "Work order created",
		"workorder_updated":    "Work order updated",
		"workorder_deleted":    "Work order deleted",
		"workorder_summary":    "Work order summary generated",
		"workorders_health":    "Work order service up",
		"technician_required":  "tecnico_asignado is required",
		"technician_assigned":  "Technician assigned",
		"status_invalid":       "Invalid status. Must be one of: pendiente, en_progreso, completada, cancelada",
		"priority_invalid":     "Invalid priority. Must be one of: baja, media, alta",
		"status_updated":       "Status updated to %s",
		"description_required": "descripcion is required",
		"task_added":           "Task added",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if tag == "" {
			continue
		}
		base := strings.SplitN(tag, "-", 2)[0]
		if _, ok := catalog[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// T returns the translation for code, falling back to the default language
// and then to the code itself.
func T(lang, code string) string {
	if msgs, ok := catalog[lang]; ok {
		if msg, ok := msgs[code]; ok {
			return msg
		}
	}
	if msg, ok := catalog[DefaultLang][code]; ok {
		return msg
	}
	return code
}

// Tf is T with fmt-style arguments.
func Tf(lang, code string, args ...any) string {
	if len(args) == 0 {
		return T(lang, code)
	}
	return fmt.Sprintf(T(lang, code), args...)
}

// WithLang stores the negotiated language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langCtxKey, lang)
}

// LangFrom returns the language stored in ctx or DefaultLang.
func LangFrom(ctx context.Context) string {
	if v, ok := ctx.Value(langCtxKey).(string); ok && v != "" {
		return v
	}
	return DefaultLang
}
