package notification

import (
	"sort"
	"strings"

	"shopease/internal/model"
)

// TemplateData holds placeholder values; "{key}" in a template is replaced by data[key]
type TemplateData map[string]string

// Rendered is a message ready for delivery
type Rendered struct {
	Subject string
	Body    string
}

type template struct {
	subject  string
	body     string
	defaults TemplateData
}

var templates = map[string]template{
	model.CategoryOrderConfirmation: {
		subject: "Order Confirmation - Order #{order_id}",
		body: `<html><body>
<h2>Order Confirmation</h2>
<p>Dear {name},</p>
<p>Thank you for your order! Your order has been successfully placed.</p>
<ul>
<li>Order ID: #{order_id}</li>
<li>Total Amount: ₹{amount}</li>
<li>Status: {status}</li>
</ul>
<p>You will receive another notification once your order is shipped.</p>
</body></html>`,
		defaults: TemplateData{"order_id": "N/A", "amount": "0", "status": "Confirmed", "name": "Customer"},
	},
	model.CategoryPaymentConfirmation: {
		subject: "Payment Confirmation - Order #{order_id}",
		body: `<html><body>
<h2>Payment Confirmation</h2>
<p>Dear {name},</p>
<p>{message}</p>
<table>
<tr><td>Payment ID:</td><td>{payment_id}</td></tr>
<tr><td>Order ID:</td><td>#{order_id}</td></tr>
<tr><td>Amount:</td><td>₹{amount}</td></tr>
<tr><td>Payment Status:</td><td>{payment_status}</td></tr>
<tr><td>Payment Method:</td><td>{payment_method}</td></tr>
<tr><td>Transaction ID:</td><td>{transaction_id}</td></tr>
</table>
<p>Best regards,<br>The ShopEase Team</p>
</body></html>`,
		defaults: TemplateData{
			"name": "Customer", "message": "", "payment_id": "N/A", "order_id": "N/A", "amount": "0",
			"payment_status": "completed", "payment_method": "N/A", "transaction_id": "N/A",
		},
	},
	model.CategoryShippingUpdate: {
		subject: "Shipping Update - Order #{order_id}",
		body: `<html><body>
<h2>Shipping Update</h2>
<p>Dear {name},</p>
<p>Your order has been shipped!</p>
<ul>
<li>Order ID: #{order_id}</li>
<li>Tracking Number: {tracking_number}</li>
<li>Estimated Delivery: {estimated_delivery}</li>
</ul>
</body></html>`,
		defaults: TemplateData{
			"name": "Customer", "order_id": "N/A", "tracking_number": "N/A",
			"estimated_delivery": "3-5 business days",
		},
	},
	model.CategoryWelcome: {
		subject: "Welcome to ShopEase! Your Account is Ready",
		body: `<html><body>
<h2>Hi {username}!</h2>
<p>Thank you for registering with ShopEase. Your account has been successfully created!</p>
<ul>
<li>Email: {email}</li>
</ul>
<p>Thank you for choosing ShopEase!</p>
</body></html>`,
		defaults: TemplateData{"username": "Valued Customer", "email": "N/A"},
	},
	model.CategoryUserRegistration: {
		subject: "Welcome to ShopEase! Your Account is Ready",
		body: `<html><body>
<h2>Hi {username}!</h2>
<p>Thank you for registering with ShopEase. Your account has been successfully created!</p>
<ul>
<li>Username: {username}</li>
<li>Email: {email}</li>
</ul>
<p>Thank you for choosing ShopEase!</p>
</body></html>`,
		defaults: TemplateData{"username": "Valued Customer", "email": "N/A"},
	},
	model.CategoryGeneral: {
		subject: "{title}",
		body: `<html><body>
<h2>{title}</h2>
<p>Dear {name},</p>
<p>{message}</p>
<p>Thank you!</p>
</body></html>`,
		defaults: TemplateData{"title": "Notification from ShopEase", "message": "You have a new notification.", "name": "Customer"},
	},
}

// Render fills the template of category, falling back to the general one.
// Values are substituted verbatim.
func Render(category string, data TemplateData) Rendered {
	tpl, ok := templates[category]
	if !ok {
		tpl = templates[model.CategoryGeneral]
	}

	values := make(TemplateData, len(tpl.defaults)+len(data))
	for k, v := range tpl.defaults {
		values[k] = v
	}
	for k, v := range data {
		if v != "" {
			values[k] = v
		}
	}

	// fixed argument order for the replacer
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", values[k])
	}
	r := strings.NewReplacer(pairs...)

	return Rendered{Subject: r.Replace(tpl.subject), Body: r.Replace(tpl.body)}
}
