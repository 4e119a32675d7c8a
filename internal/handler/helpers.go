package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/middleware"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// operador builds the acting user and business from the JWT claims.
func operador(c *gin.Context) (service.Operador, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return service.Operador{}, false
	}
	usuarioID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token con usuario invalido"))
		return service.Operador{}, false
	}
	negocioID, err := uuid.Parse(claims.NegocioID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token con negocio invalido"))
		return service.Operador{}, false
	}
	return service.Operador{UsuarioID: usuarioID, NegocioID: negocioID}, true
}

// paramUUID parses a path parameter, answering 400 when it is not a UUID.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page/limit with defaults; the services clamp the limit.
func pagination(c *gin.Context, defLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defLimit)))
	if err != nil || limit < 1 {
		limit = defLimit
	}
	return page, limit
}

// respondError translates a service error into its HTTP response. Anything
// that is not a domain error becomes a generic 500; the cause is attached to
// the context so ErrorHandler logs it.
func respondError(c *gin.Context, err error) {
	de, ok := apierror.As(err)
	if !ok {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
		return
	}

	switch de.Code {
	case apierror.CodeValidation, apierror.CodeUnbalancedPayments:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, &apierror.ValidationError{
			Detail: de.Detail,
			Code:   string(de.Code),
			Fields: de.Fields,
		})
		return
	case apierror.CodeNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, &apierror.APIError{Detail: de.Detail, Code: string(de.Code)})
		return
	case apierror.CodeConcurrencyConflict:
		infra.ConflictosConcurrencia.Inc()
	}
	c.AbortWithStatusJSON(http.StatusConflict, &apierror.APIError{
		Detail:    de.Detail,
		Code:      string(de.Code),
		Retryable: de.Retryable(),
	})
}
