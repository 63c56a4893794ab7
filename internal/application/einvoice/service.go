package einvoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// Códigos de error operativos (no de validación) guardados en el registro FE.
const (
	ErrorCodeTransport = "transport_error"
	ErrorCodeSigning   = "signing_error"
	ErrorCodeStorage   = "attachment_error"
)

// Deps dependencias del servicio FE.
type Deps struct {
	Orders         repository.OrderRepository
	Companies      repository.CompanyRepository
	PosConfigs     repository.PosConfigRepository
	Customers      repository.CustomerRepository
	PaymentMethods repository.PaymentMethodRepository
	Accounting     repository.AccountingDocumentRepository
	Tx             TxRunner
	Renderer       DocumentRenderer
	Signer         hacienda.Signer
	Attachments    AttachmentStore
	Dispatcher     *Dispatcher
	Locker         Locker
	Logger         *logger.Logger
}

// Options parámetros operativos.
type Options struct {
	Situation    string        // situación de la clave; vacío = normal
	BatchLimit   int           // límite por defecto de los lotes cron
	LeaseTTL     time.Duration // duración del lease de lote
	Now          Clock
	SecurityCode func() (string, error)
}

// Service máquina de estados del comprobante electrónico de pedidos POS:
//
//	classify → enqueue (pending) → prepare (clave + XML firmado) → send → poll
//
// Cada transición corre en su propia transacción con la fila del pedido bloqueada.
// Los errores de validación dejan el documento en error; los de transporte en
// error_retry con backoff; los conflictos de concurrencia se omiten.
type Service struct {
	orders     repository.OrderRepository
	companies  repository.CompanyRepository
	posConfigs repository.PosConfigRepository
	customers  repository.CustomerRepository
	payMethods repository.PaymentMethodRepository
	accounting repository.AccountingDocumentRepository
	tx         TxRunner
	renderer   DocumentRenderer
	signer     hacienda.Signer
	store      AttachmentStore
	dispatcher *Dispatcher
	locker     Locker
	log        *logger.Logger
	opts       Options
}

// NewService construye el servicio. Options vacías usan los valores por defecto.
func NewService(d Deps, opts Options) *Service {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SecurityCode == nil {
		opts.SecurityCode = fe.NewSecurityCode
	}
	if opts.Situation == "" {
		opts.Situation = hacienda.SituationNormal
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = DefaultBatchLimit
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = DefaultLeaseTTL
	}
	return &Service{
		orders:     d.Orders,
		companies:  d.Companies,
		posConfigs: d.PosConfigs,
		customers:  d.Customers,
		payMethods: d.PaymentMethods,
		accounting: d.Accounting,
		tx:         d.Tx,
		renderer:   d.Renderer,
		signer:     d.Signer,
		store:      d.Attachments,
		dispatcher: d.Dispatcher,
		locker:     d.Locker,
		log:        d.Logger.Component("fe"),
		opts:       opts,
	}
}

// PreparedDocument resultado de Prepare.
type PreparedDocument struct {
	OrderID        string
	DocumentType   entity.DocumentType
	Clave          string
	Consecutivo    string
	IdempotencyKey string
	XMLAttachment  string
	SignedXML      []byte
	Payload        *Payload
}

// DocumentView registro FE de un pedido y el track que lo controla.
type DocumentView struct {
	OrderID  string
	Track    string // ticket | invoice | none
	Document entity.ElectronicDocument
}

// Tracks de emisión.
const (
	TrackTicket  = "ticket"
	TrackInvoice = "invoice"
	TrackNone    = "none"
)

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

// Classify devuelve el tipo de comprobante que corresponde al pedido (sin modificarlo).
func (s *Service) Classify(ctx context.Context, orderID string) (entity.DocumentType, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	enabled, err := s.feEnabled(ctx, order)
	if err != nil {
		return "", err
	}
	acct, err := s.accountingFor(ctx, order)
	if err != nil {
		return "", err
	}
	return fe.Classify(fe.ClassifyInput{Order: order, FEEnabled: enabled, Accounting: acct}), nil
}

// Document devuelve el registro FE del pedido.
func (s *Service) Document(ctx context.Context, orderID string) (*DocumentView, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	acct, err := s.accountingFor(ctx, order)
	if err != nil {
		return nil, err
	}
	view := &DocumentView{OrderID: order.ID, Track: TrackNone, Document: order.FE}
	switch {
	case acct.IsRealInvoice():
		view.Track = TrackInvoice
	case order.FE.DocumentType == entity.DocumentTypeTicket || order.FE.DocumentType == entity.DocumentTypeCreditNote:
		view.Track = TrackTicket
	}
	return view, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

// ProcessAfterFinalization decide el track del pedido recién finalizado y lo deja en cola.
// Es idempotente: un pedido ya en cola, enviado o terminal no cambia salvo force.
func (s *Service) ProcessAfterFinalization(ctx context.Context, orderID string, force bool) error {
	err := s.tx.RunOrder(ctx, orderID, repository.LockNoWait, func(repos TxRepos, order *entity.Order) error {
		doc := order.FE
		enabled, err := s.feEnabled(ctx, order)
		if err != nil {
			return err
		}
		if !enabled {
			if doc.Status == entity.StatusNotApplicable {
				return nil
			}
			doc.DocumentType = entity.DocumentTypeNotApplicable
			doc.Status = entity.StatusNotApplicable
			doc.NextTry = nil
			s.log.Info().Str("order_id", order.ID).Msg("FE deshabilitada en el punto de venta")
			return repos.Orders.UpdateFE(ctx, order.ID, &doc)
		}

		acct, err := s.accountingFor(ctx, order)
		if err != nil {
			return err
		}
		if acct.IsRealInvoice() {
			return s.enqueueInvoiceTrack(ctx, repos, order, acct)
		}

		docType := fe.Classify(fe.ClassifyInput{Order: order, FEEnabled: true})
		if docType == "" {
			return nil
		}
		if !force && alreadyQueued(doc.Status) {
			s.log.Debug().Str("order_id", order.ID).Str("status", string(doc.Status)).Msg("pedido ya en flujo FE, sin cambios")
			return nil
		}

		now := s.opts.Now()
		doc.DocumentType = docType
		doc.Status = entity.StatusPending
		doc.NextTry = &now
		doc.LastError = ""
		doc.ErrorCode = ""
		if doc.IdempotencyKey == "" {
			doc.IdempotencyKey = fe.BuildIdempotencyKey(order.CompanyID, order.ConfigID, order.Name, order.ID)
		}
		if docType == entity.DocumentTypeCreditNote && !doc.Reference.IsComplete() {
			if ref, ok, err := s.resolveReference(ctx, order, fe.ReferenceOptions{}); err != nil {
				return err
			} else if ok {
				doc.Reference = ref
			}
		}
		if err := repos.Orders.UpdateFE(ctx, order.ID, &doc); err != nil {
			return err
		}
		s.log.Info().Str("order_id", order.ID).Str("document_type", string(docType)).Str("status", string(doc.Status)).Msg("pedido en cola FE")
		return nil
	})
	if errors.Is(err, domain.ErrAlreadySubmitted) {
		s.log.Info().Str("order_id", orderID).Msg("clave de idempotencia ya registrada, pedido ya procesado")
		return nil
	}
	return err
}

// Prepare asigna identificadores (una sola vez), arma el XML, lo firma y lo guarda como
// adjunto. Un error de validación deja el documento en error y se devuelve al llamador.
func (s *Service) Prepare(ctx context.Context, orderID string) (*PreparedDocument, error) {
	var (
		prepared *PreparedDocument
		outcome  error
	)
	err := s.tx.RunOrder(ctx, orderID, repository.LockNoWait, func(repos TxRepos, order *entity.Order) error {
		acct, err := s.accountingFor(ctx, order)
		if err != nil {
			return err
		}
		p, err := s.prepareLocked(ctx, repos, order, acct)
		if err != nil {
			return s.recordFailure(ctx, repos, order, err, &outcome)
		}
		prepared = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prepared, outcome
}

// SendNow envía el comprobante. Devuelve true si el documento quedó enviado o ya lo estaba.
// force reenvía (y vuelve a firmar) aunque el documento esté en estado final.
func (s *Service) SendNow(ctx context.Context, orderID string, force bool) (bool, error) {
	return s.sendNow(ctx, orderID, force, repository.LockNoWait)
}

// ForceResend equivale a SendNow con force.
func (s *Service) ForceResend(ctx context.Context, orderID string) (bool, error) {
	return s.sendNow(ctx, orderID, true, repository.LockNoWait)
}

// CheckStatus consulta a Hacienda el estado del comprobante y lo normaliza.
func (s *Service) CheckStatus(ctx context.Context, orderID string) (entity.Status, error) {
	return s.checkStatus(ctx, orderID, repository.LockNoWait)
}

func (s *Service) sendNow(ctx context.Context, orderID string, force bool, mode repository.LockMode) (bool, error) {
	var (
		sent    bool
		outcome error
	)
	err := s.tx.RunOrder(ctx, orderID, mode, func(repos TxRepos, order *entity.Order) error {
		acct, err := s.accountingFor(ctx, order)
		if err != nil {
			return err
		}
		if acct.IsRealInvoice() {
			sent, err = s.sendInvoiceTrack(ctx, repos, order, acct, force)
			return err
		}

		doc := &order.FE
		if !fe.ShouldEmitFromOrder(order, acct, force) || (!force && !sendable(doc.Status)) {
			sent = doc.Status == entity.StatusSent || doc.Status == entity.StatusProcessing || fe.IsFinal(doc.Status)
			s.log.Debug().Str("order_id", order.ID).Str("status", string(doc.Status)).Msg("estado no enviable, sin cambios")
			return nil
		}

		key := fe.BuildIdempotencyKey(order.CompanyID, order.ConfigID, order.Name, order.ID)
		if ok, reason := fe.CheckIdempotency(doc, key); !ok {
			switch {
			case reason == fe.ReasonIdempotencyMismatch:
				doc.ErrorCode = fe.CodeIdempotencyMismatch
				doc.LastError = fmt.Sprintf("clave de idempotencia %q no coincide con %q", doc.IdempotencyKey, key)
				s.log.Warn().Str("order_id", order.ID).Str("reason", reason).Msg("envío bloqueado")
				return repos.Orders.UpdateFE(ctx, order.ID, doc)
			case !force:
				sent = true
				return nil
			}
		}

		// ═══════════════════════════════════════════════════════════════════════
		// 1. XML firmado: se prepara si falta (o si se fuerza), si no se revalida
		// ═══════════════════════════════════════════════════════════════════════
		var signed []byte
		if doc.XMLAttachment == "" || !doc.HasIdentifiers() || force {
			p, err := s.prepareLocked(ctx, repos, order, acct)
			if err != nil {
				return s.recordFailure(ctx, repos, order, err, &outcome)
			}
			signed = p.SignedXML
		} else {
			if err := s.validate(ctx, order, doc.DocumentType); err != nil {
				return s.recordFailure(ctx, repos, order, err, &outcome)
			}
			if signed, err = s.store.Load(ctx, doc.XMLAttachment); err != nil {
				return s.recordFailure(ctx, repos, order, storageError(err), &outcome)
			}
		}

		// ═══════════════════════════════════════════════════════════════════════
		// 2. Envío por la cadena de backends
		// ═══════════════════════════════════════════════════════════════════════
		company, err := s.companies.GetByID(ctx, order.CompanyID)
		if err != nil {
			return err
		}
		req := &SendRequest{
			OrderID:        order.ID,
			OrderName:      order.Name,
			CompanyID:      order.CompanyID,
			DocumentType:   doc.DocumentType,
			Clave:          doc.Clave,
			Consecutivo:    doc.Consecutivo,
			IdempotencyKey: doc.IdempotencyKey,
			IssueDate:      order.DateOrder,
			Issuer: Party{
				Name:               company.Name,
				IdentificationType: identificationType(company.IdentificationType, company.TaxID),
				TaxID:              hacienda.OnlyDigits(company.TaxID),
			},
			SignedXML: signed,
			Force:     force,
		}
		if order.CustomerID != "" {
			if c, err := s.customers.GetByID(ctx, order.CustomerID); err == nil && c.TaxID != "" {
				req.Receiver = Party{
					Name:               c.Name,
					IdentificationType: identificationType(c.IdentificationType, c.TaxID),
					TaxID:              hacienda.OnlyDigits(c.TaxID),
				}
			}
		}

		res, err := s.dispatcher.Send(ctx, req)
		now := s.opts.Now()
		switch {
		case err == nil:
		case errors.As(err, new(*DispatchError)):
			return err
		case errors.Is(err, domain.ErrAlreadySubmitted):
			res = &BackendResult{Status: string(entity.StatusSent), Message: err.Error()}
		default:
			return s.recordFailure(ctx, repos, order, err, &outcome)
		}

		// ═══════════════════════════════════════════════════════════════════════
		// 3. Resultado
		// ═══════════════════════════════════════════════════════════════════════
		doc.Status = fe.NormalizeStatus(res.Status, doc.Status, true)
		doc.RetryCount = 0
		doc.LastError = ""
		doc.ErrorCode = ""
		doc.LastSendDate = &now
		if doc.Status == entity.StatusRejected {
			doc.LastError = res.Message
		}
		s.scheduleNextPoll(doc, now)

		handle, err := s.store.Store(ctx, ownerOf(order), responseXML(res), entity.AttachmentKindResponse)
		if err != nil {
			s.log.Warn().Err(err).Str("order_id", order.ID).Msg("no se pudo guardar la respuesta de Hacienda")
		} else {
			doc.ResponseAttachment = handle
		}

		if err := repos.Orders.UpdateFE(ctx, order.ID, doc); err != nil {
			return err
		}
		sent = true
		s.log.Info().Str("order_id", order.ID).Str("backend", res.Backend).Str("clave", doc.Clave).
			Str("status", string(doc.Status)).Msg("comprobante enviado")
		return nil
	})
	if errors.Is(err, domain.ErrAlreadySubmitted) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return sent, outcome
}

func (s *Service) checkStatus(ctx context.Context, orderID string, mode repository.LockMode) (entity.Status, error) {
	var (
		status  entity.Status
		outcome error
	)
	err := s.tx.RunOrder(ctx, orderID, mode, func(repos TxRepos, order *entity.Order) error {
		acct, err := s.accountingFor(ctx, order)
		if err != nil {
			return err
		}
		doc := &order.FE
		if acct.IsRealInvoice() {
			fresh, err := s.accounting.GetByID(ctx, acct.ID)
			if err != nil {
				return err
			}
			SyncFromAccounting(doc, fresh)
			scheduleInvoiceTrackPoll(doc, s.opts.Now())
			status = doc.Status
			return repos.Orders.UpdateFE(ctx, order.ID, doc)
		}

		status = doc.Status
		if doc.Clave == "" {
			outcome = fe.NewValidationError(fe.CodeMissingClave, "el pedido %s no tiene clave asignada", order.ID)
			return nil
		}

		res, err := s.dispatcher.CheckStatus(ctx, &StatusRequest{OrderID: order.ID, CompanyID: order.CompanyID, Clave: doc.Clave})
		now := s.opts.Now()
		if err != nil {
			if errors.As(err, new(*DispatchError)) {
				return err
			}
			next := now.Add(fe.StatusPollInterval)
			doc.NextTry = &next
			doc.LastError = err.Error()
			s.log.Warn().Err(err).Str("order_id", order.ID).Str("status", string(doc.Status)).Msg("consulta de estado fallida")
			outcome = fmt.Errorf("%w: %v", ErrTransient, err)
			return repos.Orders.UpdateFE(ctx, order.ID, doc)
		}

		doc.Status = fe.NormalizeStatus(res.Status, doc.Status, false)
		if doc.Status == entity.StatusRejected && res.Message != "" {
			doc.LastError = res.Message
		} else if fe.IsTerminal(doc.Status) {
			doc.LastError = ""
		}
		s.scheduleNextPoll(doc, now)
		if len(res.ResponseXML) > 0 {
			handle, err := s.store.Store(ctx, ownerOf(order), res.ResponseXML, entity.AttachmentKindResponse)
			if err != nil {
				s.log.Warn().Err(err).Str("order_id", order.ID).Msg("no se pudo guardar el acuse de Hacienda")
			} else {
				doc.ResponseAttachment = handle
			}
		}
		if err := repos.Orders.UpdateFE(ctx, order.ID, doc); err != nil {
			return err
		}
		status = doc.Status
		s.log.Info().Str("order_id", order.ID).Str("clave", doc.Clave).Str("status", string(status)).Msg("estado actualizado")
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, outcome
}

// ──────────────────────────────────────────────────────────────────────────────
// Preparación
// ──────────────────────────────────────────────────────────────────────────────

// prepareLocked asume la fila bloqueada. No persiste en caso de error: lo hace recordFailure.
func (s *Service) prepareLocked(ctx context.Context, repos TxRepos, order *entity.Order, acct *entity.AccountingDocument) (*PreparedDocument, error) {
	if err := fe.EnsureOrderTrack(order, acct); err != nil {
		return nil, err
	}
	doc := &order.FE

	docType := doc.DocumentType
	switch docType {
	case entity.DocumentTypeTicket, entity.DocumentTypeCreditNote:
	case entity.DocumentTypeNotApplicable:
		return nil, fe.NewValidationError(fe.CodeNotApplicable, "el pedido %s no emite comprobante (FE deshabilitada)", order.ID)
	default:
		docType = fe.Classify(fe.ClassifyInput{Order: order, FEEnabled: true})
	}
	if docType == "" {
		return nil, fe.NewValidationError(fe.CodeNotFinalized, "el pedido %s está en estado %q", order.ID, order.State)
	}

	if docType == entity.DocumentTypeCreditNote && !doc.Reference.IsComplete() {
		ref, ok, err := s.resolveReference(ctx, order, fe.ReferenceOptions{
			ReasonCode: doc.Reference.ReasonCode,
			ReasonText: doc.Reference.ReasonText,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			doc.Reference = ref
		}
	}

	company, err := s.companies.GetByID(ctx, order.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("emisor %s: %w", order.CompanyID, err)
	}
	methods, primary, err := s.paymentMethods(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := fe.ValidateForEmission(fe.EmissionInput{
		Order:          order,
		Company:        company,
		PrimaryPayment: primary,
		DocumentType:   docType,
		Reference:      doc.Reference,
	}); err != nil {
		return nil, err
	}

	// Identificadores: una sola vez por documento.
	if !doc.HasIdentifiers() {
		if err := s.assignIdentifiers(ctx, repos, order, company, docType); err != nil {
			return nil, err
		}
	}
	doc.DocumentType = docType

	var customer *entity.Customer
	if order.CustomerID != "" {
		customer, err = s.customers.GetByID(ctx, order.CustomerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	payload, err := BuildPayload(PayloadInput{
		Order:          order,
		Company:        company,
		Customer:       customer,
		PaymentMethods: methods,
		DocumentType:   docType,
	})
	if err != nil {
		return nil, err
	}
	unsigned, err := s.renderer.Render(payload)
	if err != nil {
		return nil, fmt.Errorf("generar XML: %w", err)
	}
	signed, err := s.signer.Sign(ctx, unsigned)
	if err != nil {
		return nil, &opError{code: ErrorCodeSigning, err: fmt.Errorf("firmar XML: %w", err)}
	}
	handle, err := s.store.Store(ctx, ownerOf(order), signed, entity.AttachmentKindDocument)
	if err != nil {
		return nil, storageError(err)
	}
	doc.XMLAttachment = handle
	if doc.Status == "" || doc.Status == entity.StatusDraft {
		doc.Status = entity.StatusPending
	}
	if err := repos.Orders.UpdateFE(ctx, order.ID, doc); err != nil {
		return nil, err
	}

	s.log.Info().Str("order_id", order.ID).Str("clave", doc.Clave).Str("consecutivo", doc.Consecutivo).
		Str("document_type", string(docType)).Msg("comprobante firmado")
	return &PreparedDocument{
		OrderID:        order.ID,
		DocumentType:   docType,
		Clave:          doc.Clave,
		Consecutivo:    doc.Consecutivo,
		IdempotencyKey: doc.IdempotencyKey,
		XMLAttachment:  handle,
		SignedXML:      signed,
		Payload:        payload,
	}, nil
}

func (s *Service) assignIdentifiers(ctx context.Context, repos TxRepos, order *entity.Order, company *entity.Company, docType entity.DocumentType) error {
	doc := &order.FE
	if doc.IdempotencyKey == "" {
		doc.IdempotencyKey = fe.BuildIdempotencyKey(order.CompanyID, order.ConfigID, order.Name, order.ID)
	}
	var code string
	if doc.Clave == "" {
		var err error
		if code, err = s.opts.SecurityCode(); err != nil {
			return err
		}
	}
	if doc.Consecutivo == "" {
		// Todo lo que puede fallar va antes de tomar el número: un número tomado
		// sin consecutivo queda como hueco en la secuencia.
		if err := fe.ValidateIssuerCodes(company); err != nil {
			return err
		}
		if !hacienda.ValidSituations[s.opts.Situation] {
			return fe.NewValidationError(fe.CodeInvalidSequence, "situación %q inválida", s.opts.Situation)
		}
		seq, err := repos.Sequences.Next(ctx, company.ID, docType)
		if err != nil {
			return fmt.Errorf("asignar consecutivo: %w", err)
		}
		consecutivo, err := fe.BuildConsecutivo(company.BranchCode, company.TerminalCode, fe.DocumentCode(docType), seq)
		if err != nil {
			return err
		}
		doc.Consecutivo = consecutivo
		if last, err := fe.SequenceFromConsecutivo(consecutivo); err == nil {
			if err := repos.Companies.UpdateLastConsecutivo(ctx, company.ID, docType, last); err != nil {
				return fmt.Errorf("sincronizar último consecutivo: %w", err)
			}
		}
	}
	if doc.Clave == "" {
		issueDate := order.DateOrder
		if issueDate.IsZero() {
			issueDate = s.opts.Now()
		}
		clave, err := fe.BuildClave(fe.ClaveParams{
			IssueDate:    issueDate,
			IssuerTaxID:  company.TaxID,
			Consecutivo:  doc.Consecutivo,
			Situation:    s.opts.Situation,
			SecurityCode: code,
		})
		if err != nil {
			return err
		}
		doc.Clave = clave
	}
	return nil
}

// validate repite las validaciones previas a la firma sobre un documento ya preparado.
func (s *Service) validate(ctx context.Context, order *entity.Order, docType entity.DocumentType) error {
	company, err := s.companies.GetByID(ctx, order.CompanyID)
	if err != nil {
		return fmt.Errorf("emisor %s: %w", order.CompanyID, err)
	}
	_, primary, err := s.paymentMethods(ctx, order)
	if err != nil {
		return err
	}
	return fe.ValidateForEmission(fe.EmissionInput{
		Order:          order,
		Company:        company,
		PrimaryPayment: primary,
		DocumentType:   docType,
		Reference:      order.FE.Reference,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Track factura
// ──────────────────────────────────────────────────────────────────────────────

func (s *Service) enqueueInvoiceTrack(ctx context.Context, repos TxRepos, order *entity.Order, acct *entity.AccountingDocument) error {
	_, primary, err := s.paymentMethods(ctx, order)
	if err != nil {
		return err
	}
	var payCode, saleCond string
	if primary != nil {
		payCode, saleCond = primary.FEPaymentMethodCode, primary.FESaleConditionCode
	}
	if err := s.accounting.MarkPending(ctx, acct.ID, payCode, saleCond); err != nil {
		return fmt.Errorf("marcar documento contable %s: %w", acct.ID, err)
	}
	fresh, err := s.accounting.GetByID(ctx, acct.ID)
	if err != nil {
		return err
	}
	doc := order.FE
	SyncFromAccounting(&doc, fresh)
	s.log.Info().Str("order_id", order.ID).Str("accounting_document", acct.Name).Str("status", string(doc.Status)).Msg("pedido en track factura")
	return repos.Orders.UpdateFE(ctx, order.ID, &doc)
}

func (s *Service) sendInvoiceTrack(ctx context.Context, repos TxRepos, order *entity.Order, acct *entity.AccountingDocument, force bool) (bool, error) {
	fresh, err := s.accounting.RequestSend(ctx, acct.ID, force)
	if err != nil {
		return false, fmt.Errorf("envío del documento contable %s: %w", acct.Name, err)
	}
	doc := &order.FE
	SyncFromAccounting(doc, fresh)
	scheduleInvoiceTrackPoll(doc, s.opts.Now())
	if err := repos.Orders.UpdateFE(ctx, order.ID, doc); err != nil {
		return false, err
	}
	return doc.Status != entity.StatusError && doc.Status != entity.StatusErrorRetry, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores
// ──────────────────────────────────────────────────────────────────────────────

// opError fallo operativo con código propio (firma, almacenamiento): se reintenta.
type opError struct {
	code string
	err  error
}

func (e *opError) Error() string { return e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func storageError(err error) error {
	return &opError{code: ErrorCodeStorage, err: fmt.Errorf("adjunto XML: %w", err)}
}

// recordFailure persiste el efecto de err sobre el documento y lo deja en *outcome para el
// llamador. Devuelve el error de la transacción: nil si el estado quedó guardado.
//
//   - referencia incompleta → sigue pending, se reintenta más tarde
//   - validación → error, sin next_try
//   - conflictos y ya enviado → se propagan tal cual (rollback)
//   - resto → error_retry con backoff
func (s *Service) recordFailure(ctx context.Context, repos TxRepos, order *entity.Order, err error, outcome *error) error {
	if errors.Is(err, domain.ErrConcurrentUpdate) || errors.Is(err, domain.ErrAlreadySubmitted) || errors.Is(err, context.Canceled) {
		return err
	}
	if code := fe.ValidationCode(err); code == fe.CodeTicketTrackBlocked || code == fe.CodeNotApplicable {
		// El registro pertenece al track factura: no se toca.
		*outcome = err
		return nil
	}
	doc := &order.FE
	now := s.opts.Now()

	switch {
	case fe.ValidationCode(err) == fe.CodeIncompleteReference:
		next := now.Add(fe.RetryStep)
		doc.Status = entity.StatusPending
		doc.ErrorCode = fe.CodeIncompleteReference
		doc.LastError = err.Error()
		doc.NextTry = &next
		s.log.Warn().Str("order_id", order.ID).Str("status", string(doc.Status)).Msg("nota de crédito sin referencia completa, emisión diferida")

	case fe.IsValidationError(err):
		doc.Status = entity.StatusError
		doc.ErrorCode = fe.ValidationCode(err)
		doc.LastError = err.Error()
		doc.NextTry = nil
		s.log.Warn().Str("order_id", order.ID).Str("error_code", doc.ErrorCode).Str("status", string(doc.Status)).Msg(doc.LastError)

	default:
		doc.RetryCount++
		next := fe.NextRetry(now, doc.RetryCount)
		doc.Status = entity.StatusErrorRetry
		doc.ErrorCode = ErrorCodeTransport
		var oe *opError
		if errors.As(err, &oe) {
			doc.ErrorCode = oe.code
		}
		doc.LastError = err.Error()
		doc.NextTry = &next
		err = fmt.Errorf("%w: %v", ErrTransient, err)
		s.log.Warn().Str("order_id", order.ID).Str("status", string(doc.Status)).Int("retry_count", doc.RetryCount).
			Time("next_try", next).Msg(doc.LastError)
	}

	*outcome = err
	return repos.Orders.UpdateFE(ctx, order.ID, doc)
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func (s *Service) scheduleNextPoll(doc *entity.ElectronicDocument, now time.Time) {
	if fe.IsTerminal(doc.Status) || doc.Status == entity.StatusComplete {
		doc.NextTry = nil
		doc.ErrorCode = ""
		return
	}
	next := now.Add(fe.StatusPollInterval)
	doc.NextTry = &next
}

func (s *Service) feEnabled(ctx context.Context, order *entity.Order) (bool, error) {
	if order.ConfigID == "" {
		return true, nil
	}
	cfg, err := s.posConfigs.GetByID(ctx, order.ConfigID)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return cfg.FEEnabled, nil
}

func (s *Service) accountingFor(ctx context.Context, order *entity.Order) (*entity.AccountingDocument, error) {
	if order.AccountingDocumentID == "" || s.accounting == nil {
		return nil, nil
	}
	acct, err := s.accounting.GetByID(ctx, order.AccountingDocumentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return acct, err
}

// paymentMethods carga los métodos de pago del pedido y devuelve el del pago principal.
func (s *Service) paymentMethods(ctx context.Context, order *entity.Order) (map[string]*entity.PaymentMethod, *entity.PaymentMethod, error) {
	methods := make(map[string]*entity.PaymentMethod, len(order.Payments))
	for _, p := range order.Payments {
		if p.PaymentMethodID == "" {
			continue
		}
		if _, ok := methods[p.PaymentMethodID]; ok {
			continue
		}
		m, err := s.payMethods.GetByID(ctx, p.PaymentMethodID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		methods[p.PaymentMethodID] = m
	}
	var primary *entity.PaymentMethod
	if pay := fe.PrimaryPayment(order.Payments); pay != nil {
		primary = methods[pay.PaymentMethodID]
	}
	return methods, primary, nil
}

func (s *Service) resolveReference(ctx context.Context, order *entity.Order, opts fe.ReferenceOptions) (entity.Reference, bool, error) {
	lineIDs := order.RefundedLineIDs()
	if len(lineIDs) == 0 {
		return entity.Reference{}, false, nil
	}
	origins, err := s.orders.FindRefundOrigins(ctx, lineIDs)
	if err != nil {
		return entity.Reference{}, false, fmt.Errorf("pedidos de origen: %w", err)
	}
	candidates := make([]fe.OriginCandidate, 0, len(origins))
	for _, o := range origins {
		acct, err := s.accountingFor(ctx, o)
		if err != nil {
			return entity.Reference{}, false, err
		}
		candidates = append(candidates, fe.OriginCandidate{Order: o, Accounting: acct})
	}
	ref, ok := fe.ResolveReference(candidates, opts)
	return ref, ok, nil
}

func ownerOf(order *entity.Order) AttachmentOwner {
	return AttachmentOwner{CompanyID: order.CompanyID, OrderID: order.ID}
}

// alreadyQueued estados en los que ProcessAfterFinalization no hace nada sin force.
func alreadyQueued(st entity.Status) bool {
	switch st {
	case entity.StatusPending, entity.StatusSending, entity.StatusSent, entity.StatusProcessing, entity.StatusErrorRetry:
		return true
	}
	return fe.IsTerminal(st) || fe.IsFinal(st)
}

// sendable estados desde los que SendNow envía sin force.
func sendable(st entity.Status) bool {
	switch st {
	case "", entity.StatusDraft, entity.StatusPending, entity.StatusErrorRetry:
		return true
	}
	return false
}
