package application

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	order "github.com/dmehra2102/storefront/internal/order/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type mailTemplate struct {
	subject string
	file    string
}

var mailTemplates = map[string]mailTemplate{
	order.EventPlaced:    {subject: "Order Confirmation - %s", file: "placed.html"},
	order.EventCancelled: {subject: "Order Cancelled - %s", file: "cancelled.html"},
	order.EventShipped:   {subject: "Your order %s has shipped", file: "shipped.html"},
	order.EventDelivered: {subject: "Your order %s was delivered", file: "delivered.html"},
}

var funcs = template.FuncMap{
	"money": func(cents int64) string { return decimal.New(cents, -2).StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("Jan 2, 2006") },
}

// Renderer turns order events into email subjects and HTML bodies.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(mailTemplates))}
	for eventType, mt := range mailTemplates {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+mt.file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", mt.file, err)
		}
		r.templates[eventType] = t
	}
	return r, nil
}

// Supports reports whether eventType has an email template.
func (r *Renderer) Supports(eventType string) bool {
	_, ok := r.templates[eventType]
	return ok
}

func (r *Renderer) Render(eventType string, ev order.Event) (Message, error) {
	t, ok := r.templates[eventType]
	if !ok {
		return Message{}, fmt.Errorf("no template for %s", eventType)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", ev); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", eventType, err)
	}
	return Message{
		To:      ev.CustomerEmail,
		Subject: fmt.Sprintf(mailTemplates[eventType].subject, ev.OrderNumber),
		HTML:    buf.String(),
	}, nil
}
