package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conferencia-service/internal/api/handlers"
	"conferencia-service/internal/api/responses"
	"conferencia-service/internal/core/conferencia"
)

func novoRouterTeste() *gin.Engine {
	gin.SetMode(gin.TestMode)
	responses.InitLogger()

	svc := conferencia.NewService(zap.NewNop())
	h := handlers.NewConferenciaHandler(svc)

	router := gin.New()
	router.POST("/api/v1/conferencia/xml-nfce", h.HandleXMLNFCe)
	router.POST("/api/v1/conferencia/nf3e", h.HandleNF3e)
	router.POST("/api/v1/conferencia/nat-receita", h.HandleNatReceita)
	return router
}

func TestHandleXMLNFCe_SemArquivo(t *testing.T) {
	router := novoRouterTeste()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conferencia/xml-nfce", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Arquivo zip")
}

func TestHandleXMLNFCe_ExtensaoInvalida(t *testing.T) {
	router := novoRouterTeste()

	var corpo bytes.Buffer
	mw := multipart.NewWriter(&corpo)
	fw, err := mw.CreateFormFile("arquivoZip", "notas.rar")
	require.NoError(t, err)
	_, err = fw.Write([]byte("dados"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conferencia/xml-nfce", &corpo)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "não suportada")
}

func TestHandleNF3e_SemArquivos(t *testing.T) {
	router := novoRouterTeste()

	var corpo bytes.Buffer
	mw := multipart.NewWriter(&corpo)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conferencia/nf3e", &corpo)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNatReceita_GeraAnexoXLSX(t *testing.T) {
	router := novoRouterTeste()

	var corpo bytes.Buffer
	mw := multipart.NewWriter(&corpo)
	fw, err := mw.CreateFormFile("arquivoTxt", "extrato.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(`"1","PRODUTO","10","101.01","01","22030000","04","04","5405","1","10,00","0,00","10,00"` + "\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("cstPisFiltro", "04"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conferencia/nat-receita", &corpo)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Resumo_Nat_Receita")
	assert.Equal(t, "0", rec.Header().Get("X-Linhas-Ignoradas"))
}
