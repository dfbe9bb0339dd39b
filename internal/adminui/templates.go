package adminui

import (
	"fmt"
	"html/template"
	"net/http"
)

type templates struct {
	login  *template.Template
	queue  *template.Template
	errorT *template.Template
}

type viewData struct {
	Title string
	Error string
}

type loginViewData struct {
	Title     string
	Error     string
	Username  string
	CSRFToken string
}

type queueViewData struct {
	Title     string
	Admin     string
	CSRFToken string
	Status    string
	Statuses  []string
	Stats     statsView
	Comments  []commentRow
	Notice    string
}

type statsView struct {
	Pending  int
	Approved int
	Rejected int
	Total    int
}

type commentRow struct {
	ID          string
	ArticleID   int64
	AuthorName  string
	AuthorEmail string
	Content     string
	Status      string
	CreatedAt   string
}

func parseTemplates() (*templates, error) {
	parse := func(files ...string) (*template.Template, error) {
		t, err := template.New("base").ParseFS(assets, files...)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	login, err := parse("templates/layout.html", "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login: %w", err)
	}
	queue, err := parse("templates/layout.html", "templates/queue.html")
	if err != nil {
		return nil, fmt.Errorf("parse queue: %w", err)
	}
	errorT, err := parse("templates/layout.html", "templates/error.html")
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &templates{login: login, queue: queue, errorT: errorT}, nil
}

func render(w http.ResponseWriter, t *template.Template, name string, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = t.ExecuteTemplate(w, name, data)
}

func (t *templates) renderLogin(w http.ResponseWriter, status int, data loginViewData) {
	render(w, t.login, "login.html", status, data)
}

func (t *templates) renderQueue(w http.ResponseWriter, status int, data queueViewData) {
	render(w, t.queue, "queue.html", status, data)
}

func (t *templates) renderError(w http.ResponseWriter, status int, title, msg string) {
	render(w, t.errorT, "error.html", status, viewData{Title: title, Error: msg})
}
