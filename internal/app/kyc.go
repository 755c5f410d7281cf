package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"karsaazai/internal/util"
	"karsaazai/pkg/domain"
)

// CNICVerifyRequest carries both sides of an identity card plus optional
// values the caller expects the card to show.
type CNICVerifyRequest struct {
	FrontBase64        string `json:"cnicFrontBase64"`
	BackBase64         string `json:"cnicBackBase64"`
	ExpectedName       string `json:"expectedName"`
	ExpectedFatherName string `json:"expectedFatherName"`
	ExpectedDOB        string `json:"expectedDob"`
}

// CNICVerifyResult is the structured extraction, expectation comparison, and
// the raw OCR text of each side.
type CNICVerifyResult struct {
	CNIC    domain.CNICDetails `json:"cnic"`
	Matches map[string]bool    `json:"matches,omitempty"`
	RawOCR  map[string]string  `json:"rawOcr"`
}

// VerifyCNIC runs OCR on both card sides concurrently, asks the chat model to
// structure the result, compares against expected values, and merges the
// extraction into the user's profile. The profile write and media archival
// are best-effort: their failure is logged and never fails the response.
func (a *App) VerifyCNIC(ctx context.Context, uid string, req CNICVerifyRequest) (CNICVerifyResult, error) {
	front, err := decodeBase64Payload(req.FrontBase64)
	if err != nil {
		return CNICVerifyResult{}, fmt.Errorf("cnicFrontBase64: %w", err)
	}
	back, err := decodeBase64Payload(req.BackBase64)
	if err != nil {
		return CNICVerifyResult{}, fmt.Errorf("cnicBackBase64: %w", err)
	}

	var frontText, backText string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		frontText, err = a.recognizeCardText(gctx, front, req.FrontBase64)
		return err
	})
	g.Go(func() error {
		var err error
		backText, err = a.recognizeCardText(gctx, back, req.BackBase64)
		return err
	})
	if err := g.Wait(); err != nil {
		return CNICVerifyResult{}, fmt.Errorf("ocr: %w", err)
	}

	reply, err := a.chat.GenerateText(ctx, cnicExtractionSystemPrompt, cnicExtractionUserPrompt(frontText, backText))
	if err != nil {
		return CNICVerifyResult{}, fmt.Errorf("extract cnic fields: %w", err)
	}
	details, err := parseCNICExtraction(reply)
	if err != nil {
		return CNICVerifyResult{}, err
	}

	result := CNICVerifyResult{
		CNIC: details,
		RawOCR: map[string]string{
			"front": frontText,
			"back":  backText,
		},
		Matches: compareExpectations(details, req),
	}

	logger := util.LoggerFromContext(ctx)
	verification := map[string]any{
		"name":       details.Name,
		"fatherName": details.FatherName,
		"cnicNumber": details.CNICNumber,
		"dob":        details.DateOfBirth,
		"verifiedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if err := a.store.MergeUserVerification(uid, "cnic", verification); err != nil {
		logger.Warn("cnic profile write failed", "user_id", uid, "err", err)
	}

	ts := time.Now().UTC().Format("20060102T150405")
	a.archiveMedia(ctx, fmt.Sprintf("kyc/%s/cnic-front-%s.jpg", uid, ts), front, "image/jpeg")
	a.archiveMedia(ctx, fmt.Sprintf("kyc/%s/cnic-back-%s.jpg", uid, ts), back, "image/jpeg")

	return result, nil
}

// recognizeCardText reads a card side with the configured OCR model, or with
// the delegate verification service's document reader when no model is set.
func (a *App) recognizeCardText(ctx context.Context, image []byte, imageB64 string) (string, error) {
	if strings.TrimSpace(a.ocrModel) != "" {
		return a.inference.OCR(ctx, a.ocrModel, image)
	}
	lines, err := a.kyc.VerifyCNIC(ctx, imageB64)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// FaceVerify delegates document-vs-selfie comparison to the verification
// service and passes the result through unchanged.
func (a *App) FaceVerify(ctx context.Context, uid, cnicImageB64, selfieB64 string) (json.RawMessage, error) {
	if _, err := decodeBase64Payload(cnicImageB64); err != nil {
		return nil, fmt.Errorf("cnicImage: %w", err)
	}
	selfie, err := decodeBase64Payload(selfieB64)
	if err != nil {
		return nil, fmt.Errorf("selfieImage: %w", err)
	}
	result, err := a.kyc.FaceVerify(ctx, cnicImageB64, selfieB64)
	if err != nil {
		return nil, err
	}
	ts := time.Now().UTC().Format("20060102T150405")
	a.archiveMedia(ctx, fmt.Sprintf("kyc/%s/selfie-%s.jpg", uid, ts), selfie, "image/jpeg")
	return result, nil
}

// ShopVerify delegates shop-photo inspection to the verification service.
func (a *App) ShopVerify(ctx context.Context, uid, shopImageB64 string) (json.RawMessage, error) {
	shop, err := decodeBase64Payload(shopImageB64)
	if err != nil {
		return nil, fmt.Errorf("shopImage: %w", err)
	}
	result, err := a.kyc.ShopVerify(ctx, shopImageB64)
	if err != nil {
		return nil, err
	}
	ts := time.Now().UTC().Format("20060102T150405")
	a.archiveMedia(ctx, fmt.Sprintf("kyc/%s/shop-%s.jpg", uid, ts), shop, "image/jpeg")
	return result, nil
}

const cnicExtractionSystemPrompt = `You read OCR output from a Pakistani national identity card (CNIC). Respond with a single JSON object with the keys "name", "fatherName", "cnicNumber", "dob", "dateOfIssue", "dateOfExpiry", "address". Use "" for anything you cannot find. Format the CNIC number as XXXXX-XXXXXXX-X and dates as DD.MM.YYYY. Return only the JSON object.`

func cnicExtractionUserPrompt(frontText, backText string) string {
	return fmt.Sprintf("OCR of card front:\n%s\n\nOCR of card back:\n%s", frontText, backText)
}

func parseCNICExtraction(reply string) (domain.CNICDetails, error) {
	cleaned := strings.TrimSpace(reply)
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	var details domain.CNICDetails
	if err := json.Unmarshal([]byte(cleaned), &details); err != nil {
		return domain.CNICDetails{}, &CNICParseError{Raw: reply, Err: err}
	}
	return details, nil
}

func compareExpectations(details domain.CNICDetails, req CNICVerifyRequest) map[string]bool {
	matches := map[string]bool{}
	if v := strings.TrimSpace(req.ExpectedName); v != "" {
		matches["name"] = normalizeField(v) == normalizeField(details.Name)
	}
	if v := strings.TrimSpace(req.ExpectedFatherName); v != "" {
		matches["fatherName"] = normalizeField(v) == normalizeField(details.FatherName)
	}
	if v := strings.TrimSpace(req.ExpectedDOB); v != "" {
		matches["dob"] = normalizeField(v) == normalizeField(details.DateOfBirth)
	}
	if len(matches) == 0 {
		return nil
	}
	return matches
}

func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
