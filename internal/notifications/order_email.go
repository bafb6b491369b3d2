package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/magisurprise/backend/pkg/outbox/payloads"
)

var pesos = message.NewPrinter(language.Spanish)

func formatPesos(amount decimal.Decimal) string {
	return pesos.Sprintf("$ %d", amount.Round(0).IntPart())
}

type orderEmailLine struct {
	Nombre     string
	Cantidad   int
	Subtotal   string
	Comentario string
	IsCustom   bool
}

type orderEmailView struct {
	ShortID         string
	Negocio         string
	Total           string
	PriceUnverified bool
	Lines           []orderEmailLine
	Delivery        payloads.DeliverySummary
}

var orderCreatedHTML = template.Must(template.New("order_created_html").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2>Nuevo pedido {{.ShortID}}</h2>
{{if .Negocio}}<p>Negocio: <strong>{{.Negocio}}</strong></p>{{end}}
<ul>
{{range .Lines}}<li>{{.Cantidad}}x {{.Nombre}}{{if .IsCustom}} (personalizado){{end}} - {{.Subtotal}}{{if .Comentario}}<br><em>{{.Comentario}}</em>{{end}}</li>
{{end}}</ul>
<p><strong>Total: {{.Total}}</strong></p>
{{if .PriceUnverified}}<p style="color: #b00;">Los precios del pedido no coinciden con el catálogo. Verificar antes de confirmar.</p>{{end}}
<h3>Entrega</h3>
<p>Envía: {{.Delivery.SenderName}} ({{.Delivery.SenderPhone}})</p>
<p>Recibe: {{if .Delivery.RecipientName}}{{.Delivery.RecipientName}} {{end}}({{.Delivery.RecipientPhone}})</p>
<p>Dirección: {{.Delivery.DeliveryAddress}}{{if .Delivery.City}}, {{.Delivery.City}}{{end}}</p>
{{if .Delivery.DeliveryDate}}<p>Fecha: {{.Delivery.DeliveryDate}} {{.Delivery.DeliveryTimeSlot}}</p>{{end}}
{{if .Delivery.Message}}<p>Mensaje: {{.Delivery.Message}}</p>{{end}}
</body>
</html>
`))

var orderCreatedText = texttemplate.Must(texttemplate.New("order_created_text").Parse(`Nuevo pedido {{.ShortID}}
{{if .Negocio}}Negocio: {{.Negocio}}
{{end}}{{range .Lines}}- {{.Cantidad}}x {{.Nombre}} {{.Subtotal}}
{{end}}Total: {{.Total}}
Envía: {{.Delivery.SenderName}} ({{.Delivery.SenderPhone}})
Recibe: {{.Delivery.RecipientPhone}}
Dirección: {{.Delivery.DeliveryAddress}}
`))

// ComposeOrderCreated renders the confirmation sent to operators and the
// negocio owner. Recipients are deduplicated; blanks are dropped.
func ComposeOrderCreated(event payloads.OrderCreatedEvent, operators []string) (Email, error) {
	recipients := lo.Uniq(lo.Compact(lo.Map(append(append([]string{}, operators...), event.OwnerEmail), func(addr string, _ int) string {
		return strings.ToLower(strings.TrimSpace(addr))
	})))
	if len(recipients) == 0 {
		return Email{}, ErrNoRecipients
	}

	view := orderEmailView{
		ShortID:         shortID(event),
		Negocio:         event.NegocioNombre,
		Total:           formatPesos(event.Total),
		PriceUnverified: event.PriceUnverified,
		Delivery:        event.Delivery,
		Lines: lo.Map(event.Items, func(item payloads.OrderItemLine, _ int) orderEmailLine {
			return orderEmailLine{
				Nombre:     item.Nombre,
				Cantidad:   item.Cantidad,
				Subtotal:   formatPesos(item.Precio.Mul(decimal.NewFromInt(int64(item.Cantidad)))),
				Comentario: item.Comentario,
				IsCustom:   item.IsCustom,
			}
		}),
	}

	var html, text bytes.Buffer
	if err := orderCreatedHTML.Execute(&html, view); err != nil {
		return Email{}, fmt.Errorf("render order email: %w", err)
	}
	if err := orderCreatedText.Execute(&text, view); err != nil {
		return Email{}, fmt.Errorf("render order email text: %w", err)
	}

	subject := fmt.Sprintf("Nuevo pedido %s", view.ShortID)
	if event.NegocioNombre != "" {
		subject = fmt.Sprintf("Nuevo pedido %s - %s", view.ShortID, event.NegocioNombre)
	}
	return Email{
		To:      recipients,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func shortID(event payloads.OrderCreatedEvent) string {
	return "#" + strings.ToUpper(event.OrderID.String()[:8])
}
