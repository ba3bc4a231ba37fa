// internal/api/handlers/conferencia_handler.go
package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"conferencia-service/internal/api/responses"
	"conferencia-service/internal/core/coletor"
	"conferencia-service/internal/core/conferencia"

	"github.com/gin-gonic/gin"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ConferenciaHandler lida com as requisições da API de conferência fiscal.
type ConferenciaHandler struct {
	service conferencia.Service
}

// NewConferenciaHandler cria um novo handler de conferência.
func NewConferenciaHandler(service conferencia.Service) *ConferenciaHandler {
	return &ConferenciaHandler{
		service: service,
	}
}

// getFiltrosFromForm extrai e limpa os valores de um campo de formulário
// separado por vírgulas.
func getFiltrosFromForm(c *gin.Context, formKey string) []string {
	filtrosStr := c.PostForm(formKey)
	if filtrosStr == "" {
		return nil
	}
	parts := strings.Split(filtrosStr, ",")
	var filtros []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			filtros = append(filtros, trimmed)
		}
	}
	return filtros
}

func lerArquivoForm(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func enviarXLSX(c *gin.Context, prefixo string, dados []byte) {
	fileName := fmt.Sprintf("%s_%s.xlsx", prefixo, time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, contentTypeXLSX, dados)
}

// HandleXMLNFCe lida com a conferência de um lote zip de XMLs de NFC-e.
func (h *ConferenciaHandler) HandleXMLNFCe(c *gin.Context) {
	zipHeader, err := c.FormFile("arquivoZip")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo zip não encontrado ou inválido")
		return
	}

	ext := strings.ToLower(filepath.Ext(zipHeader.Filename))
	if ext != ".zip" {
		responses.Error(c, http.StatusBadRequest, fmt.Sprintf("Extensão de arquivo não suportada: %s", ext))
		return
	}

	dados, err := lerArquivoForm(zipHeader)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo zip")
		return
	}

	xlsx, contagens, err := h.service.ProcessarXMLNFCe(c.Request.Context(), dados)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao processar o lote de XMLs", err.Error())
		return
	}

	c.Header("X-Documentos-Lidos", fmt.Sprint(contagens.DocumentosLidos))
	c.Header("X-Duplicados-Removidos", fmt.Sprint(contagens.DuplicadosRemovidos))
	c.Header("X-Documentos-Retidos", fmt.Sprint(contagens.DocumentosRetidos))
	enviarXLSX(c, "Dados_NFC-e", xlsx)
}

// HandleNF3e lida com a extração de contas de energia (texto extraído de NF3e).
func (h *ConferenciaHandler) HandleNF3e(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Formulário inválido")
		return
	}
	headers := form.File["arquivos"]
	if len(headers) == 0 {
		responses.Error(c, http.StatusBadRequest, "Nenhum arquivo foi enviado")
		return
	}

	var arquivos []coletor.Arquivo
	for _, header := range headers {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".txt" && ext != ".zip" {
			responses.Error(c, http.StatusBadRequest, fmt.Sprintf("Extensão de arquivo não suportada: %s", ext))
			return
		}
		dados, err := lerArquivoForm(header)
		if err != nil {
			responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir um dos arquivos enviados")
			return
		}
		arquivos = append(arquivos, coletor.Arquivo{Nome: header.Filename, Dados: dados})
	}

	xlsx, total, err := h.service.ProcessarNF3e(c.Request.Context(), arquivos)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao processar os arquivos NF3e", err.Error())
		return
	}

	c.Header("X-Notas-Extraidas", fmt.Sprint(total))
	enviarXLSX(c, "Notas_NF3e", xlsx)
}

// HandleNatReceita lida com o resumo por natureza da receita de um extrato texto.
func (h *ConferenciaHandler) HandleNatReceita(c *gin.Context) {
	txtHeader, err := c.FormFile("arquivoTxt")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo de extrato (.txt) não encontrado ou inválido")
		return
	}

	cstPisFiltro := getFiltrosFromForm(c, "cstPisFiltro")

	dados, err := lerArquivoForm(txtHeader)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo de extrato")
		return
	}

	xlsx, ignoradas, err := h.service.ProcessarNatReceita(dados, cstPisFiltro)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao processar o extrato", err.Error())
		return
	}

	c.Header("X-Linhas-Ignoradas", fmt.Sprint(ignoradas))
	enviarXLSX(c, "Resumo_Nat_Receita", xlsx)
}
