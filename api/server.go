package api

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/nfmint/nfm/holdings"
	"github.com/nfmint/nfm/ledger"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const prefixMintTrace = "API:MINT:TRACE:"

// PropertyStore is the slice of the store the server needs for mint trace
// deduplication.
type PropertyStore interface {
	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)
}

type Server struct {
	engine *gin.Engine
	ledger *ledger.Ledger
	rec    *holdings.Reconstructor
	props  PropertyStore
	conf   *Configuration
}

func NewServer(l *ledger.Ledger, rec *holdings.Reconstructor, props PropertyStore, conf *Configuration) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: gin.New(),
		ledger: l,
		rec:    rec,
		props:  props,
		conf:   conf,
	}
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.POST("/mint", s.mint)
	s.engine.POST("/transfer", s.transfer)
	s.engine.POST("/approve", s.approve)
	s.engine.POST("/operators", s.setOperator)
	s.engine.POST("/marketplace", s.setMarketplace)
	s.engine.POST("/admin", s.transferAdmin)
	s.engine.GET("/supply", s.supply)
	s.engine.GET("/events", s.events)
	s.engine.GET("/tokens/:id", s.token)
	s.engine.GET("/tokens/:id/royalty", s.royalty)
	s.engine.GET("/accounts/:address", s.account)
	s.engine.GET("/accounts/:address/holdings", s.holdings)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.conf.API.Listen,
		Handler: s.engine,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Info().Str("listen", s.conf.API.Listen).Msg("api serving")
	return srv.ListenAndServe()
}

func (s *Server) mint(c *gin.Context) {
	var body struct {
		From    string `json:"from" binding:"required"`
		URI     string `json:"uri"`
		TraceID string `json:"trace_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	from, ok := parseAddress(c, body.From)
	if !ok {
		return
	}

	var traceKey []byte
	if body.TraceID != "" {
		tid, err := uuid.FromString(body.TraceID)
		if err != nil {
			abortError(c, http.StatusBadRequest, err)
			return
		}
		traceKey = append([]byte(prefixMintTrace), tid.Bytes()...)
		old, err := s.props.ReadProperty(traceKey)
		if err != nil {
			abortError(c, http.StatusInternalServerError, err)
			return
		}
		if len(old) == 8 {
			c.JSON(http.StatusOK, gin.H{"id": idFromBytes(old), "replay": true})
			return
		}
	}

	id, err := s.ledger.Mint(from, body.URI)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	if traceKey != nil {
		err = s.props.WriteProperty(traceKey, idToBytes(id))
		if err != nil {
			log.Error().Err(err).Str("trace", body.TraceID).Msg("mint trace not recorded")
		}
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) transfer(c *gin.Context) {
	var body struct {
		From    string  `json:"from" binding:"required"`
		Owner   string  `json:"owner" binding:"required"`
		To      string  `json:"to" binding:"required"`
		TokenID *uint64 `json:"token_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	caller, ok := parseAddress(c, body.From)
	if !ok {
		return
	}
	owner, ok := parseAddress(c, body.Owner)
	if !ok {
		return
	}
	to, ok := parseAddress(c, body.To)
	if !ok {
		return
	}
	err := s.ledger.TransferFrom(caller, owner, to, *body.TokenID)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": *body.TokenID, "owner": to})
}

func (s *Server) approve(c *gin.Context) {
	var body struct {
		From    string  `json:"from" binding:"required"`
		Spender string  `json:"spender" binding:"required"`
		TokenID *uint64 `json:"token_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	caller, ok := parseAddress(c, body.From)
	if !ok {
		return
	}
	spender, ok := parseAddress(c, body.Spender)
	if !ok {
		return
	}
	err := s.ledger.Approve(caller, spender, *body.TokenID)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) setOperator(c *gin.Context) {
	var body struct {
		From     string `json:"from" binding:"required"`
		Operator string `json:"operator" binding:"required"`
		Approved bool   `json:"approved"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	caller, ok := parseAddress(c, body.From)
	if !ok {
		return
	}
	operator, ok := parseAddress(c, body.Operator)
	if !ok {
		return
	}
	err := s.ledger.SetApprovalForAll(caller, operator, body.Approved)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) setMarketplace(c *gin.Context) {
	var body struct {
		From    string `json:"from" binding:"required"`
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	caller, ok := parseAddress(c, body.From)
	if !ok {
		return
	}
	marketplace, ok := parseAddress(c, body.Address)
	if !ok {
		return
	}
	err := s.ledger.SetMarketplace(caller, marketplace)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) transferAdmin(c *gin.Context) {
	var body struct {
		From    string `json:"from" binding:"required"`
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	caller, ok := parseAddress(c, body.From)
	if !ok {
		return
	}
	admin, ok := parseAddress(c, body.Address)
	if !ok {
		return
	}
	err := s.ledger.TransferAdmin(caller, admin)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) supply(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supply": s.ledger.TotalSupply()})
}

func (s *Server) events(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		abortError(c, http.StatusBadRequest, errors.New("invalid limit"))
		return
	}
	evts, err := s.ledger.Events(limit)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evts})
}

func (s *Server) token(c *gin.Context) {
	id, ok := parseTokenID(c)
	if !ok {
		return
	}
	owner, err := s.ledger.OwnerOf(id)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	uri, err := s.ledger.TokenURI(id)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	approved, err := s.ledger.GetApproved(id)
	if err != nil {
		abortError(c, errStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"owner":    owner,
		"uri":      uri,
		"approved": approved,
	})
}

// the sale price is a decimal string of base units, fractions are rejected
// rather than rounded silently
func (s *Server) royalty(c *gin.Context) {
	id, ok := parseTokenID(c)
	if !ok {
		return
	}
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if price.IsNegative() || !price.IsInteger() {
		abortError(c, http.StatusBadRequest, errors.New("price must be a non-negative integer amount"))
		return
	}
	receiver, amount := s.ledger.RoyaltyInfo(id, price.BigInt())
	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"receiver": receiver,
		"amount":   amount.String(),
	})
}

func (s *Server) account(c *gin.Context) {
	owner, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	balance, err := s.ledger.BalanceOf(owner)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": owner, "balance": balance})
}

func (s *Server) holdings(c *gin.Context) {
	owner, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	view, err := s.rec.Holdings(c.Request.Context(), owner)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	if view == nil {
		view = []*holdings.Holding{}
	}
	c.JSON(http.StatusOK, gin.H{"address": owner, "holdings": view})
}

func parseAddress(c *gin.Context, s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		abortError(c, http.StatusBadRequest, errors.New("invalid address "+s))
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseTokenID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortError(c, http.StatusBadRequest, err)
		return 0, false
	}
	return id, true
}

func abortError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func idToBytes(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func idFromBytes(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}
