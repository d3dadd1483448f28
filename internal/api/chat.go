package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tutor-backend/internal/chat"
	"tutor-backend/internal/ingest"
	"tutor-backend/pkg/api"
)

const maxUploadMemory = 32 << 20 // 32 MB before multipart parsing spills to disk

type ChatService struct {
	store    *chat.Store
	router   *chat.Router
	mindmap  *chat.Mindmapper
	ingestor *ingest.Ingestor
}

func NewChatService(store *chat.Store, router *chat.Router, mindmap *chat.Mindmapper, ingestor *ingest.Ingestor) *ChatService {
	return &ChatService{
		store:    store,
		router:   router,
		mindmap:  mindmap,
		ingestor: ingestor,
	}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetChats))
		r.Post("/", RestHandler(s.CreateChat))
		r.Route("/{chat_id}", func(r chi.Router) {
			r.Delete("/", RestHandler(s.DeleteChat))
			r.Get("/messages", RestHandler(s.GetMessages))
			r.Post("/completion", RestHandler(s.Completion))
			r.Post("/embed", RestHandler(s.EmbedDocument))
			r.Post("/generate-mindmap", RestHandler(s.GenerateMindmap))
		})
	})
}

// serviceError maps domain errors onto response status codes. Anything not
// recognized is an internal error; the original message is preserved for
// diagnostics.
func serviceError(err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return CodedError(http.StatusBadRequest, err)
	case errors.Is(err, chat.ErrIntegrity):
		return CodedError(http.StatusNotFound, err)
	default:
		return CodedError(http.StatusInternalServerError, err)
	}
}

func (s *ChatService) GetChats(r *http.Request) (any, error) {
	chats, err := s.store.ListChats()
	if err != nil {
		return nil, serviceError(err)
	}

	resp := make([]api.ChatMetadata, 0, len(chats))
	for _, c := range chats {
		resp = append(resp, chatMetadata(c))
	}
	return resp, nil
}

func (s *ChatService) CreateChat(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateChatRequest](r)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateChat(req.Title)
	if err != nil {
		return nil, serviceError(err)
	}

	messages, err := s.store.ListMessages(created.ChatID, 0)
	if err != nil {
		return nil, serviceError(err)
	}

	return api.CreateChatResponse{
		ChatMetadata: chatMetadata(created),
		Messages:     chatMessages(messages),
	}, nil
}

func (s *ChatService) DeleteChat(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteChat(chatID); err != nil {
		return nil, serviceError(err)
	}
	return nil, nil
}

func (s *ChatService) GetMessages(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	query, err := ParseRequestQueryParams[api.ListMessagesQuery](r)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(chatID, query.Limit)
	if err != nil {
		return nil, serviceError(err)
	}

	return chatMessages(messages), nil
}

func (s *ChatService) Completion(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.CompletionRequest](r)
	if err != nil {
		return nil, err
	}

	reply, err := s.router.Complete(r.Context(), chatID, completionMessages(req.Messages), samplingParams(req))
	if err != nil {
		return nil, serviceError(err)
	}

	return api.MessageResponse{Message: reply}, nil
}

func (s *ChatService) EmbedDocument(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing file in upload: %v", err)
	}
	defer file.Close()

	if err := s.ingestor.EmbedDocument(r.Context(), chatID, file, header.Filename); err != nil {
		return nil, serviceError(err)
	}

	return api.MessageResponse{Message: "Successfully embedded document"}, nil
}

func (s *ChatService) GenerateMindmap(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	markdown, err := s.mindmap.Generate(r.Context(), chatID)
	if err != nil {
		return nil, serviceError(err)
	}

	return api.MessageResponse{Message: markdown}, nil
}
