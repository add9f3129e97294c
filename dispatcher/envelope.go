package dispatcher

import (
	"encoding/json"

	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
)

// ResultKind tags the operation that produced a result.
type ResultKind string

const (
	KindText      ResultKind = "text"
	KindImage     ResultKind = "image_base64"
	KindModelList ResultKind = "model_list"
)

// Result is the successful outcome of one operation. Which fields are set
// depends on Kind.
type Result struct {
	Kind  ResultKind
	Model string

	// KindText
	Text  string
	Audio *AudioPayload

	// KindImage: base64 image exactly as returned by the backend.
	Image string

	// KindModelList
	ImageModels      []ModelDescriptor
	TextModelsSample []string
}

// Status is the envelope discriminator.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Envelope is the uniform response of every request. Build it with Success
// or Failure; it is not modified afterwards.
type Envelope struct {
	Status Status
	Result *Result

	ErrorKind     gwerrors.Kind
	Category      string
	Details       string
	BackendStatus int
}

// Success wraps a result.
func Success(res *Result) *Envelope {
	return &Envelope{Status: StatusSuccess, Result: res}
}

// Failure wraps an error. Only the classified, caller-safe details of err are
// kept; unclassified errors are reported as internal without details.
func Failure(err error) *Envelope {
	gwErr := gwerrors.ErrInternal
	var classified *gwerrors.Error
	if gwerrors.As(err, &classified) {
		gwErr = classified
	}

	env := &Envelope{
		Status:        StatusError,
		ErrorKind:     gwErr.Kind,
		Category:      category(gwErr),
		Details:       gwErr.Details,
		BackendStatus: gwErr.StatusCode,
	}
	if env.Details == "" {
		env.Details = defaultDetails[env.ErrorKind]
	}
	return env
}

// Err returns the failure carried by the envelope, or nil on success. It
// matches the gwerrors sentinels of its kind.
func (e *Envelope) Err() error {
	if e == nil || e.Status != StatusError {
		return nil
	}
	return &gwerrors.Error{Kind: e.ErrorKind, Details: e.Details, StatusCode: e.BackendStatus}
}

var categories = map[gwerrors.Kind]string{
	gwerrors.KindMissingCredential:    "Clé API manquante",
	gwerrors.KindBackendUnavailable:   "Erreur de connexion",
	gwerrors.KindGenerationFailed:     "Erreur de génération",
	gwerrors.KindBackendHTTPError:     "Erreur API Google",
	gwerrors.KindNoPredictionReturned: "Aucune image générée",
	gwerrors.KindTransportError:       "Erreur système",
	gwerrors.KindSynthesisFailure:     "Erreur de synthèse vocale",
	gwerrors.KindInternal:             "Erreur interne",
}

var defaultDetails = map[gwerrors.Kind]string{
	gwerrors.KindMissingCredential: "GEMINI_API_KEY n'est pas configurée",
}

func category(err *gwerrors.Error) string {
	switch err.Kind {
	case gwerrors.KindMissingParameter, gwerrors.KindMissingPrompt:
		switch err.Message {
		case ParamMessage:
			return "Message manquant"
		case ParamPrompt:
			return "Prompt manquant"
		default:
			return "Paramètre manquant"
		}
	}
	if c, ok := categories[err.Kind]; ok {
		return c
	}
	return categories[gwerrors.KindInternal]
}

type textBody struct {
	Status      Status     `json:"status"`
	Type        ResultKind `json:"type"`
	ModelUsed   string     `json:"model_used"`
	Reponse     string     `json:"reponse"`
	AudioBase64 string     `json:"audio_base64,omitempty"`
	AudioInfo   string     `json:"audio_info,omitempty"`
}

type imageBody struct {
	Status    Status     `json:"status"`
	ModelUsed string     `json:"model_used"`
	Type      ResultKind `json:"type"`
	Data      string     `json:"data"`
}

type modelListBody struct {
	Status      Status            `json:"status"`
	Type        ResultKind        `json:"type"`
	ImageModels []ModelDescriptor `json:"AVAILABLE_IMAGE_MODELS"`
	TextSample  []string          `json:"available_text_models_sample"`
}

type errorBody struct {
	Status        Status `json:"status"`
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	BackendStatus int    `json:"backend_status,omitempty"`
}

// MarshalJSON flattens the envelope into the wire shape of its kind.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Status != StatusSuccess || e.Result == nil {
		return json.Marshal(errorBody{
			Status:        StatusError,
			Error:         e.Category,
			Details:       e.Details,
			BackendStatus: e.BackendStatus,
		})
	}

	res := e.Result
	switch res.Kind {
	case KindImage:
		return json.Marshal(imageBody{
			Status:    e.Status,
			ModelUsed: res.Model,
			Type:      res.Kind,
			Data:      res.Image,
		})
	case KindModelList:
		images, sample := res.ImageModels, res.TextModelsSample
		if images == nil {
			images = []ModelDescriptor{}
		}
		if sample == nil {
			sample = []string{}
		}
		return json.Marshal(modelListBody{
			Status:      e.Status,
			Type:        res.Kind,
			ImageModels: images,
			TextSample:  sample,
		})
	default:
		body := textBody{
			Status:    e.Status,
			Type:      KindText,
			ModelUsed: res.Model,
			Reponse:   res.Text,
		}
		if res.Audio != nil {
			body.AudioBase64 = res.Audio.Encoded
			body.AudioInfo = res.Audio.Info()
		}
		return json.Marshal(body)
	}
}
