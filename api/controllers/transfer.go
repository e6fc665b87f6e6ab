package controllers

import (
	"net/http"

	"github.com/assetdesk/assetdesk-backend/api/responses"
	transfersvc "github.com/assetdesk/assetdesk-backend/internal/transfer"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

const importFormField = "csv_file"

// ImportPersons ingests a CSV upload of person rows.
func ImportPersons(svc transfersvc.Service, logg *logger.Logger, maxUploadMB int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maxBytes := int64(maxUploadMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload"))
			return
		}

		file, _, err := r.FormFile(importFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "csv_file is required"))
			return
		}
		defer file.Close()

		result, err := svc.ImportPersons(r.Context(), uid, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ExportPersons streams all persons as a CSV download.
func ExportPersons(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="persons.csv"`)

		if err := svc.ExportPersons(r.Context(), uid, w); err != nil {
			// Headers may already be out; log and abort the stream.
			if logg != nil {
				logg.Error(r.Context(), "person export failed", err)
			}
			return
		}
	}
}
