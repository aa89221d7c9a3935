package fulfillment

import (
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/TrollHead15/AstroLiana/internal/leads"
)

// Material describes the email sent for one lead kind. Attachment is a file
// name resolved through the dispatcher's AttachmentSource; empty means the
// email carries no attachment.
type Material struct {
	Subject     string
	Attachment  string
	ContentType string
	HTML        *htmltemplate.Template
	Text        *texttemplate.Template
}

// templateData is the view model passed to both bodies.
type templateData struct {
	Name string
}

const layoutHTML = `<div style="font-family:'Inter',Arial,sans-serif;color:#1d1c2d;background-color:#f9f6ee;padding:32px">
<div style="background-color:#ffffff;border-radius:16px;padding:32px;line-height:1.6">
{{template "content" .}}
</div>
</div>`

const checklistHTML = `{{define "content"}}<h1 style="margin:0 0 16px;font-size:24px;font-weight:600;color:#2d2b55">Привет, {{if .Name}}{{.Name}}{{else}}друг{{end}}!</h1>
<p style="margin:0 0 12px">Благодарю за интерес к чек-листу «Лунный знак за 5 минут». Я подготовила PDF, который поможет быстро разобраться, как ваш Лунный знак влияет на эмоции, отношения и стиль общения.</p>
<p style="margin:0 0 12px">Чек-лист уже прикреплён к этому письму. Сохраняйте его себе, проходите шаги и отмечайте инсайты.</p>
<p style="margin:0 0 12px">Если появятся вопросы, смело отвечайте на это письмо, буду рада помочь.</p>
<p style="margin:24px 0 0;font-weight:600">С теплом,<br>Лиана Астро</p>{{end}}`

const checklistText = `Привет, {{if .Name}}{{.Name}}{{else}}друг{{end}}!

Благодарю за интерес к чек-листу «Лунный знак за 5 минут». Я подготовила PDF, который поможет быстро разобраться, как ваш Лунный знак влияет на эмоции, отношения и стиль общения.

Чек-лист уже прикреплён к этому письму. Сохраняйте его себе, проходите шаги и отмечайте инсайты.

Если появятся вопросы, смело отвечайте на это письмо, буду рада помочь.

С теплом,
Лиана Астро
`

const guideHTML = `{{define "content"}}<h1 style="margin:0 0 16px;font-size:24px;font-weight:600;color:#2d2b55">{{if .Name}}{{.Name}}, ваш гайд уже здесь!{{else}}Ваш гайд уже здесь!{{end}}</h1>
<p style="margin:0 0 12px">Делюсь PDF «3 триггера в отношениях». Внутри разбор паттернов на базе Венеры и Марса и практики, которые помогают их трансформировать.</p>
<p style="margin:0 0 12px">Скачайте файл из вложения, уделите спокойные 20 минут на чтение и сохраните заметки. Эти наблюдения пригодятся для дальнейшей работы с натальной картой.</p>
<p style="margin:0 0 12px">Если захочется разобрать ваши ситуации глубже, просто ответьте на это письмо.</p>
<p style="margin:24px 0 0;font-weight:600">До связи,<br>Лиана Астро</p>{{end}}`

const guideText = `{{if .Name}}{{.Name}}, ваш гайд уже здесь!{{else}}Ваш гайд уже здесь!{{end}}

Делюсь PDF «3 триггера в отношениях». Внутри разбор паттернов на базе Венеры и Марса и практики, которые помогают их трансформировать.

Скачайте файл из вложения, уделите спокойные 20 минут на чтение и сохраните заметки. Эти наблюдения пригодятся для дальнейшей работы с натальной картой.

Если захочется разобрать ваши ситуации глубже, просто ответьте на это письмо.

До связи,
Лиана Астро
`

const natalChartHTML = `{{define "content"}}<h1 style="margin:0 0 16px;font-size:24px;font-weight:600;color:#2d2b55">{{if .Name}}{{.Name}}, заявка принята!{{else}}Заявка принята!{{end}}</h1>
<p style="margin:0 0 12px">Спасибо за доверие. Я получила ваши данные рождения и начинаю работу над разбором натальной карты.</p>
<p style="margin:0 0 12px">Готовый разбор придёт на этот адрес. Если вы хотите уточнить время или место рождения, просто ответьте на это письмо.</p>
<p style="margin:24px 0 0;font-weight:600">С теплом,<br>Лиана Астро</p>{{end}}`

const natalChartText = `{{if .Name}}{{.Name}}, заявка принята!{{else}}Заявка принята!{{end}}

Спасибо за доверие. Я получила ваши данные рождения и начинаю работу над разбором натальной карты.

Готовый разбор придёт на этот адрес. Если вы хотите уточнить время или место рождения, просто ответьте на это письмо.

С теплом,
Лиана Астро
`

func newMaterial(name, subject, attachment, htmlBody, textBody string) Material {
	h := htmltemplate.Must(htmltemplate.New(name).Option("missingkey=error").Parse(layoutHTML))
	htmltemplate.Must(h.Parse(htmlBody))
	t := texttemplate.Must(texttemplate.New(name).Option("missingkey=error").Parse(textBody))
	m := Material{Subject: subject, Attachment: attachment, HTML: h, Text: t}
	if attachment != "" {
		m.ContentType = "application/pdf"
	}
	return m
}

// DefaultMaterials returns the built-in material for every lead kind.
func DefaultMaterials() map[leads.Kind]Material {
	return map[leads.Kind]Material{
		leads.KindChecklist: newMaterial("checklist",
			"Ваш чек-лист: Лунный знак за 5 минут", "checklist.pdf", checklistHTML, checklistText),
		leads.KindGuide: newMaterial("guide",
			"Ваш гайд: 3 триггера в отношениях", "guide.pdf", guideHTML, guideText),
		leads.KindNatalChart: newMaterial("natal-chart",
			"Ваша заявка на натальную карту принята", "", natalChartHTML, natalChartText),
	}
}
