package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/foodhub/common/apiutil"
	"github.com/Aidin1998/foodhub/internal/orders"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

func (s *Server) createOrder(c *gin.Context) {
	var req orders.CreateOrderRequest
	caller := callerOf(c)
	if !caller.IsOperator() && caller.Phone != "" {
		// Customers order for themselves; the body may omit the phone.
		req.CustomerPhone = caller.Phone
	}
	if err := apiutil.BindJSON(c, &req); err != nil {
		apiutil.Error(c, err)
		return
	}
	if !caller.IsOperator() && req.CustomerPhone != caller.Phone {
		apiutil.Error(c, errors.Forbidden.Explain("customers may only order for their own phone"))
		return
	}

	order, err := s.deps.Orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	caller := callerOf(c)
	f := orders.Filter{Phone: c.Query("phone")}
	if !caller.IsOperator() {
		if f.Phone != "" && f.Phone != caller.Phone {
			apiutil.Error(c, errors.Forbidden.Explain("customers may only list their own orders"))
			return
		}
		f.Phone = caller.Phone
	}
	if raw := c.Query("status"); raw != "" {
		st, ok := models.ParseOrderStatus(raw)
		if !ok {
			apiutil.Error(c, errors.Invalid.Explain("unknown status %q", raw).WithField("oneof", "status", "must be a canonical order status"))
			return
		}
		f.Status = st
	}
	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		apiutil.Error(c, err)
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		apiutil.Error(c, err)
		return
	}

	list, err := s.deps.Orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	order, err := s.deps.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	caller := callerOf(c)
	if !caller.IsOperator() && order.CustomerPhone != caller.Phone {
		apiutil.Error(c, errors.NotFound.Explain("order %d not found", id))
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) changeStatus(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	var req orders.ChangeStatusRequest
	if err := apiutil.BindJSON(c, &req); err != nil {
		apiutil.Error(c, err)
		return
	}
	order, err := s.deps.Orders.ChangeStatus(c.Request.Context(), id, orders.StatusChange{
		From:  models.OrderStatus(req.From),
		To:    models.OrderStatus(req.Status),
		Actor: callerOf(c).Subject,
	})
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) orderHistory(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	history, err := s.deps.Orders.History(c.Request.Context(), id)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": history})
}

func (s *Server) storeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Orders.StoreStatus(c.Request.Context()))
}

func orderID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Invalid.Explain("invalid order id").WithField("numeric", "id", "must be a positive integer")
	}
	return id, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Invalid.Explain("invalid %s", name).WithField("numeric", name, "must be a non-negative integer")
	}
	return n, nil
}
