// Package handler turns typed functions into http.HandlerFunc values.
//
//	func send(ctx handler.Context, req messaging.OutboundRequest) handler.Response {
//		msg, err := svc.SendMessage(ctx, req)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(msg, handler.WithStatus(http.StatusAccepted))
//	}
//
//	r.Post("/v1/messages", handler.Wrap(send,
//		handler.WithBinders[messaging.OutboundRequest](binder.JSON()),
//		handler.WithErrorHandler[messaging.OutboundRequest](handler.NewErrorHandler(log)),
//	))
//
// Errors returned through Error or from binders are classified by Classify:
// HTTPError values keep their code, bind failures map to 400 or 415 and
// everything else becomes a generic 500 that never leaks the raw error.
package handler
