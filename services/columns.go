package services

import "contact-manager/model"

// contactColumn binds one spreadsheet column to one contact field. The
// import reconciler and the export generator both walk contactColumns in
// order, so the two stay in sync by construction: column i of an export
// is column i of an import.
type contactColumn struct {
	header string
	width  float64
	get    func(*model.Contact) string
	set    func(*model.Contact, string)
}

var contactColumns = []contactColumn{
	{"RUT", 20,
		func(c *model.Contact) string { return c.RUT },
		func(c *model.Contact, v string) { c.RUT = v }},
	{"Nombre Completo", 30,
		func(c *model.Contact) string { return c.FullName },
		func(c *model.Contact, v string) { c.FullName = v }},
	{"Teléfono", 20,
		func(c *model.Contact) string { return c.Phone },
		func(c *model.Contact, v string) { c.Phone = v }},
	{"Dirección", 30,
		func(c *model.Contact) string { return c.Address },
		func(c *model.Contact, v string) { c.Address = v }},
	{"Comuna", 20,
		func(c *model.Contact) string { return c.Comuna },
		func(c *model.Contact, v string) { c.Comuna = v }},
	{"Región", 20,
		func(c *model.Contact) string { return c.Region },
		func(c *model.Contact, v string) { c.Region = v }},
	{"Nacionalidad", 20,
		func(c *model.Contact) string { return c.Nationality },
		func(c *model.Contact, v string) { c.Nationality = v }},
	{"Email", 30,
		func(c *model.Contact) string { return c.Email },
		func(c *model.Contact, v string) { c.Email = v }},
	{"Instagram", 20,
		func(c *model.Contact) string { return c.Instagram },
		func(c *model.Contact, v string) { c.Instagram = v }},
	{"Facebook", 20,
		func(c *model.Contact) string { return c.Facebook },
		func(c *model.Contact, v string) { c.Facebook = v }},
	{"Twitter", 20,
		func(c *model.Contact) string { return c.Twitter },
		func(c *model.Contact, v string) { c.Twitter = v }},
	{"Etiqueta 1", 20,
		func(c *model.Contact) string { return c.Tag1 },
		func(c *model.Contact, v string) { c.Tag1 = v }},
	{"Etiqueta 2", 20,
		func(c *model.Contact) string { return c.Tag2 },
		func(c *model.Contact, v string) { c.Tag2 = v }},
	{"Etiqueta 3", 20,
		func(c *model.Contact) string { return c.Tag3 },
		func(c *model.Contact, v string) { c.Tag3 = v }},
	{"Comentario", 30,
		func(c *model.Contact) string { return c.Comment },
		func(c *model.Contact, v string) { c.Comment = v }},
}
