package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/maxpoletaev/gamemesh/api/model"
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, model.Error{Error: msg})
}
