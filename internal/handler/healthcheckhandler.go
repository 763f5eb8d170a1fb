package handler

import (
	"net/http"

	"github.com/salafibot/salafibot/internal/httputil"
	"github.com/salafibot/salafibot/internal/svc"
	"github.com/salafibot/salafibot/internal/types"
)

func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.HealthResponse{
			Status:    "healthy",
			Installed: svcCtx.Table.Len(),
			Remote:    svcCtx.Engine != nil,
		})
	}
}
