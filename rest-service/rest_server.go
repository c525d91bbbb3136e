package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/rs/cors"

	cryptoflow "github.com/cryptoflow/cryptoflow-go"
	"github.com/cryptoflow/cryptoflow-go/cipher"
	"github.com/cryptoflow/cryptoflow-go/digest"
	"github.com/cryptoflow/cryptoflow-go/random"
)

const (
	address          = "localhost:8086"
	generatorThreads = 4
)

var generator = random.New(generatorThreads)

type cipherRequest struct {
	Algorithm string
	Key       string
	IV        string
	Data      string
}

type cipherResponse struct {
	Data string
}

type digestRequest struct {
	Algorithm string
	Data      string
}

type digestResponse struct {
	Digest string
}

type randomRequest struct {
	Size int
}

type randomResponse struct {
	Data string
}

func httpError(w http.ResponseWriter, msg string) {
	log.Printf("%v", msg)
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(msg))
}

func buildCipher(reqData *cipherRequest) (*cipher.Builder, []byte, error) {
	algo := cipher.FromName(reqData.Algorithm)
	if algo == nil {
		return nil, nil, fmt.Errorf("There is no cipher algorithm named: %v", reqData.Algorithm)
	}

	key, err := base64.URLEncoding.DecodeString(reqData.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("Error decoding base64 key string: %v", err)
	}
	iv, err := base64.URLEncoding.DecodeString(reqData.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("Error decoding base64 IV string: %v", err)
	}
	data, err := base64.URLEncoding.DecodeString(reqData.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("Error decoding base64 data string: %v", err)
	}

	builder := cipher.NewBuilder(algo)
	if err := builder.SetKey(key); err != nil {
		return nil, nil, err
	}
	if len(iv) > 0 {
		if err := builder.SetIV(iv); err != nil {
			return nil, nil, err
		}
	}
	return builder, data, nil
}

func transform(w http.ResponseWriter, req *http.Request, encrypt bool) {
	reqData := &cipherRequest{}
	if err := json.NewDecoder(req.Body).Decode(reqData); err != nil {
		httpError(w, fmt.Sprintf("Error decoding request json: %v", err))
		return
	}

	builder, data, err := buildCipher(reqData)
	if err != nil {
		httpError(w, err.Error())
		return
	}

	inner := cryptoflow.NewSliceSource(data)
	var stream cryptoflow.Source
	if encrypt {
		stream, err = builder.Encrypt(inner)
	} else {
		stream, err = builder.Decrypt(inner)
	}
	if err != nil {
		httpError(w, fmt.Sprintf("Error creating %v stream: %v", reqData.Algorithm, err))
		return
	}

	out, err := cryptoflow.Collect(stream)
	if err != nil {
		httpError(w, fmt.Sprintf("Error transforming data: %v", err))
		return
	}

	writeJSON(w, &cipherResponse{Data: base64.URLEncoding.EncodeToString(out)})
}

func encryptData(w http.ResponseWriter, req *http.Request) {
	transform(w, req, true)
}

func decryptData(w http.ResponseWriter, req *http.Request) {
	transform(w, req, false)
}

func digestData(w http.ResponseWriter, req *http.Request) {
	reqData := &digestRequest{}
	if err := json.NewDecoder(req.Body).Decode(reqData); err != nil {
		httpError(w, fmt.Sprintf("Error decoding request json: %v", err))
		return
	}

	algo := digest.FromName(reqData.Algorithm)
	if algo == nil {
		httpError(w, fmt.Sprintf("There is no digest algorithm named: %v", reqData.Algorithm))
		return
	}

	data, err := base64.URLEncoding.DecodeString(reqData.Data)
	if err != nil {
		httpError(w, fmt.Sprintf("Error decoding base64 data string: %v", err))
		return
	}

	hasher, err := digest.New(cryptoflow.NewSliceSource(data), algo)
	if err != nil {
		httpError(w, fmt.Sprintf("Error creating %v hasher: %v", reqData.Algorithm, err))
		return
	}
	if _, err := cryptoflow.Collect(hasher); err != nil {
		httpError(w, fmt.Sprintf("Error digesting data: %v", err))
		return
	}
	d, err := hasher.Digest()
	if err != nil {
		httpError(w, fmt.Sprintf("Error retrieving digest: %v", err))
		return
	}

	writeJSON(w, &digestResponse{Digest: d.String()})
}

func randomData(w http.ResponseWriter, req *http.Request) {
	reqData := &randomRequest{}
	if err := json.NewDecoder(req.Body).Decode(reqData); err != nil {
		httpError(w, fmt.Sprintf("Error decoding request json: %v", err))
		return
	}

	bytes, err := generator.RandomBytes(reqData.Size).Wait(req.Context())
	if err != nil {
		httpError(w, fmt.Sprintf("Error generating random bytes: %v", err))
		return
	}

	writeJSON(w, &randomResponse{Data: base64.URLEncoding.EncodeToString(bytes)})
}

func writeJSON(w http.ResponseWriter, res interface{}) {
	resJson, err := json.Marshal(res)
	if err != nil {
		httpError(w, fmt.Sprintf("Error encoding response as json: %v", err))
		return
	}
	w.Write(resJson)
}

func initializeMux(mux *http.ServeMux) error {
	mux.HandleFunc("/encrypt", encryptData)
	mux.HandleFunc("/decrypt", decryptData)
	mux.HandleFunc("/digest", digestData)
	mux.HandleFunc("/random", randomData)
	return nil
}

func main() {
	mux := http.NewServeMux()
	initializeMux(mux)

	server := &http.Server{
		Addr:    address,
		Handler: cors.Default().Handler(mux),
	}
	err := server.ListenAndServe()
	if err != nil {
		log.Printf("Error starting server: %v", err)
	}
}
