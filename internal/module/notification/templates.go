package notification

// Templates are parsed into one set; each notice names the one it renders.
// Missing optional keys render empty.
const layoutTemplate = `{{define "header"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .summary { border: 1px solid #e5e7eb; border-radius: 8px; padding: 15px; margin: 20px 0; }
        .total { font-weight: bold; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">{{end}}
{{define "footer"}}        <div class="footer">
            <p>Best regards,<br>The Sports Club Team</p>
        </div>
    </div>
</body>
</html>{{end}}`

const registrationCreatedTemplate = `{{define "registration_created"}}{{template "header"}}
        <h1>Registration Received</h1>
        <p>Hi {{.Name}},</p>
        <p>Thanks for registering for {{.RaceName}}. Your registration is saved and awaiting payment.</p>
        <div class="summary">
            <p><strong>Registration Number:</strong> {{.RegistrationNumber}}</p>
            <p><strong>Event:</strong> {{.RaceEvent}}</p>
            <p class="total">Amount Due: ${{.Amount}}</p>
        </div>
        <p>Keep your registration number. You will need it to check your payment status.</p>
{{template "footer"}}{{end}}`

const purchaseCreatedTemplate = `{{define "purchase_created"}}{{template "header"}}
        <h1>Thank You!</h1>
        <p>Hi{{with .Name}} {{.}}{{end}},</p>
        <p>We have received your request for <strong>{{.Item}}</strong>.</p>
        <div class="summary">
            {{range .Lines}}<p>{{.Description}}: ${{.Amount.StringFixed 2}}</p>
            {{end}}<p class="total">Total: ${{.Amount}}</p>
            {{with .ShippingAddress}}<p><strong>Delivery Address:</strong> {{.}}</p>{{end}}
        </div>
        <p>Complete your payment with your chosen method to confirm.</p>
{{template "footer"}}{{end}}`

const paymentSucceededTemplate = `{{define "payment_succeeded"}}{{template "header"}}
        <h1>Payment Received</h1>
        <p>Hi{{with .Name}} {{.}}{{end}},</p>
        <p>Your payment of <strong>${{.Amount}}</strong> for {{with .Item}}{{.}}{{else}}{{.RaceName}}{{end}} was successful.</p>
        <div class="summary">
            {{with .InvoiceNumber}}<p><strong>Invoice:</strong> {{.}}</p>{{end}}
            {{with .RegistrationNumber}}<p><strong>Registration Number:</strong> {{.}}</p>{{end}}
        </div>
{{template "footer"}}{{end}}`
